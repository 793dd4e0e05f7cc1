// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "regexp"

// A CodeIdentifier identifies a code element that is a factory, a builder type, a terminal
// method, etc. A code identifier can be identified from its package, method, receiver or type,
// or any combination of those. Each non-empty field is interpreted as a regular expression that
// the corresponding element must match in full.
type CodeIdentifier struct {
	Package  string
	Method   string
	Receiver string
	Type     string
	// computedRegexs is not part of the yaml config
	computedRegexs *codeIdentifierRegex
}

type codeIdentifierRegex struct {
	packageRegex  *regexp.Regexp
	methodRegex   *regexp.Regexp
	receiverRegex *regexp.Regexp
	typeRegex     *regexp.Regexp
}

// CompileRegexes compiles the strings in the code identifier into regexes. It compiles all
// identifiers into regexes or none.
func CompileRegexes(cid CodeIdentifier) CodeIdentifier {
	packageRegex, err := regexp.Compile(anchor(cid.Package))
	if err != nil {
		return cid
	}
	methodRegex, err := regexp.Compile(anchor(cid.Method))
	if err != nil {
		return cid
	}
	receiverRegex, err := regexp.Compile(anchor(cid.Receiver))
	if err != nil {
		return cid
	}
	typeRegex, err := regexp.Compile(anchor(cid.Type))
	if err != nil {
		return cid
	}
	cid.computedRegexs = &codeIdentifierRegex{
		packageRegex,
		methodRegex,
		receiverRegex,
		typeRegex,
	}
	return cid
}

// anchor makes the pattern match the full string, the behavior users expect from identifiers
func anchor(pattern string) string {
	if pattern == "" {
		return ""
	}
	return "^(?:" + pattern + ")$"
}

// MatchesFunc returns true if the package, receiver and method names match the identifier on
// every non-empty field.
func (cid *CodeIdentifier) MatchesFunc(pkg string, receiver string, method string) bool {
	if cid.computedRegexs == nil {
		return ((cid.Package == pkg) || (cid.Package == "")) &&
			((cid.Receiver == receiver) || (cid.Receiver == "")) &&
			((cid.Method == method) || (cid.Method == ""))
	}
	return (cid.Package == "" || cid.computedRegexs.packageRegex.MatchString(pkg)) &&
		(cid.Receiver == "" || cid.computedRegexs.receiverRegex.MatchString(receiver)) &&
		(cid.Method == "" || cid.computedRegexs.methodRegex.MatchString(method))
}

// MatchesType returns true if the type name matches the identifier's Type field (or the
// Receiver field when Type is empty, since builder families are usually named by receiver).
func (cid *CodeIdentifier) MatchesType(typeName string) bool {
	if cid.computedRegexs == nil {
		return (cid.Type != "" && cid.Type == typeName) ||
			(cid.Type == "" && cid.Receiver != "" && cid.Receiver == typeName)
	}
	if cid.Type != "" {
		return cid.computedRegexs.typeRegex.MatchString(typeName)
	}
	if cid.Receiver != "" {
		return cid.computedRegexs.receiverRegex.MatchString(typeName)
	}
	return false
}

// ExistsCid is true if there is some x in a such that f(x) is true.
func ExistsCid(a []CodeIdentifier, f func(identifier CodeIdentifier) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}
