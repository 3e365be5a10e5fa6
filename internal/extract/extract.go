// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package extract pulls identifier-like entities out of memory content.
// It runs at store time, outside the cognitive core; the core only ever
// reads the resulting entity sets.
package extract

import (
	"regexp"
	"strings"
)

var (
	functionPattern = regexp.MustCompile(`\b(?:function|def|func|const|let|var)\s+(\w+)\s*\(`)
	classPattern    = regexp.MustCompile(`\b(?:class|type|struct)\s+(\w+)\b`)
	importPattern   = regexp.MustCompile(`\b(?:import|from|require)\s+['"]?([a-zA-Z0-9_/.-]+)['"]?`)
	variablePattern = regexp.MustCompile(`\b(?:const|let|var)\s+(\w+)\s*=`)
	filePattern     = regexp.MustCompile(`(?:^|[\s'"(])([a-zA-Z0-9_-]+/[a-zA-Z0-9_/.-]+\.[a-zA-Z0-9]+)`)
)

// techTerms are well-known technology names recognized as entities in prose
var techTerms = map[string]struct{}{
	"react": {}, "vue": {}, "angular": {}, "node": {}, "express": {},
	"fastapi": {}, "django": {}, "typescript": {}, "javascript": {},
	"python": {}, "rust": {}, "go": {}, "java": {},
	"database": {}, "api": {}, "rest": {}, "graphql": {}, "sql": {},
	"docker": {}, "kubernetes": {}, "aws": {}, "azure": {}, "gcp": {},
	"authentication": {}, "authorization": {}, "jwt": {}, "oauth": {},
	"redis": {}, "postgres": {}, "sqlite": {}, "grpc": {}, "webpack": {},
}

// maxEntities caps the extracted set per record
const maxEntities = 20

// Entities extracts a deduplicated set of identifier-like strings from
// content: function/class/import/variable names, file references and known
// technical terms. Order of first appearance is preserved.
func Entities(content string) []string {
	seen := make(map[string]struct{})
	var entities []string

	add := func(entity string) {
		entity = strings.TrimSpace(entity)
		if entity == "" || len(entity) < 2 {
			return
		}
		if _, dup := seen[entity]; dup {
			return
		}
		seen[entity] = struct{}{}
		entities = append(entities, entity)
	}

	for _, pattern := range []*regexp.Regexp{functionPattern, classPattern, importPattern, variablePattern, filePattern} {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			add(match[1])
			if len(entities) >= maxEntities {
				return entities
			}
		}
	}

	// Prose pass for technical terms
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,;:!?()[]{}'\"")
		if _, ok := techTerms[word]; ok {
			add(word)
			if len(entities) >= maxEntities {
				break
			}
		}
	}

	return entities
}
