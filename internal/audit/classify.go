// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package audit

import (
	"log/slog"
	"regexp"
)

// MethodPattern pairs an HTTP method with a path regex for combination
// matches.
type MethodPattern struct {
	Method  string
	Pattern string
}

// defaultSensitivePaths are path regexes always treated as sensitive.
var defaultSensitivePaths = []string{
	`/users/\d+/delete$`,
	`/password`,
	`/iplist`,
	`/roles`,
	`/tokens`,
}

// defaultMethodPatterns are method+path combinations treated as sensitive.
// Destructive verbs are sensitive on any path.
var defaultMethodPatterns = []MethodPattern{
	{Method: "DELETE", Pattern: `.*`},
	{Method: "PUT", Pattern: `/iplist`},
}

// Classifier decides whether a request is sensitive. Evaluation order:
// declared operation type, then path pattern, then method+path combination.
// The first true match short-circuits.
type Classifier struct {
	logger *slog.Logger

	sensitiveOps   map[string]struct{}
	pathPatterns   []*regexp.Regexp
	methodPatterns []compiledMethodPattern
}

type compiledMethodPattern struct {
	method  string
	pattern *regexp.Regexp
}

// NewClassifier compiles the configured sensitive-operation set and path
// patterns. Empty inputs fall back to the built-in defaults. Invalid
// patterns are skipped with a warning rather than failing startup.
func NewClassifier(
	logger *slog.Logger,
	sensitiveOps []string,
	pathPatterns []string,
	methodPatterns []MethodPattern,
) *Classifier {
	if len(pathPatterns) == 0 {
		pathPatterns = defaultSensitivePaths
	}
	if len(methodPatterns) == 0 {
		methodPatterns = defaultMethodPatterns
	}

	c := &Classifier{
		logger:       logger,
		sensitiveOps: make(map[string]struct{}, len(sensitiveOps)),
	}

	for _, op := range sensitiveOps {
		c.sensitiveOps[op] = struct{}{}
	}

	for _, pattern := range pathPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn(
				"skipping invalid sensitive path pattern",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.pathPatterns = append(c.pathPatterns, re)
	}

	for _, mp := range methodPatterns {
		re, err := regexp.Compile(mp.Pattern)
		if err != nil {
			logger.Warn(
				"skipping invalid sensitive method pattern",
				slog.String("method", mp.Method),
				slog.String("pattern", mp.Pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.methodPatterns = append(c.methodPatterns, compiledMethodPattern{
			method:  mp.Method,
			pattern: re,
		})
	}

	return c
}

// IsSensitive reports whether a request is high-risk. A declared operation
// type present in the sensitive-operation set wins regardless of path.
func (c *Classifier) IsSensitive(
	declaredType string,
	method string,
	path string,
) bool {
	if declaredType != "" {
		if _, ok := c.sensitiveOps[declaredType]; ok {
			return true
		}
	}

	for _, re := range c.pathPatterns {
		if re.MatchString(path) {
			return true
		}
	}

	for _, mp := range c.methodPatterns {
		if mp.method == method && mp.pattern.MatchString(path) {
			return true
		}
	}

	return false
}
