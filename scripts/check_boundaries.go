package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	modulePath  = "oddlybrilliant"
	contextsDir = "contexts/finance-core"
	bridgeDir   = "internal/app/bootstrap"
)

// peers maps each service to the one it must never import. The two services
// only meet in internal/app/bootstrap, which adapts one side's application
// service to the other side's ports.
var peers = map[string]string{
	"payout-fairness-engine":     "evidence-integrity-service",
	"evidence-integrity-service": "payout-fairness-engine",
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule constrains what one layer of a service may import. {svc} in a
// prefix expands to the service's own import path.
type layerRule struct {
	forbidden map[string]string
	allowed   []string
}

var layerRules = map[string]layerRule{
	"domain": {
		forbidden: map[string]string{
			"{svc}/adapters":              "domain must not import adapters",
			"{svc}/transport":             "domain must not import transport",
			modulePath + "/internal":      "domain must not import runtime infrastructure",
			modulePath + "/contracts/gen": "domain must not depend on wire contracts",
		},
		allowed: []string{"{svc}/domain"},
	},
	"ports": {
		forbidden: map[string]string{
			"{svc}/adapters":                  "ports must not import adapters",
			"{svc}/application":               "ports must not import application",
			modulePath + "/internal/app":      "ports must not import runtime infrastructure",
			modulePath + "/internal/platform": "ports must not import runtime infrastructure",
		},
		allowed: []string{"{svc}/domain", modulePath + "/contracts", modulePath + "/internal/shared"},
	},
	"application": {
		forbidden: map[string]string{
			"{svc}/adapters":                  "application must not import adapters",
			"{svc}/transport":                 "application must not import transport",
			modulePath + "/internal/platform": "application must not import runtime infrastructure",
			modulePath + "/internal/app":      "application must not import runtime infrastructure",
		},
		// shared packages are pure helpers (cache keys, retry, outbox rows).
		allowed: []string{
			"{svc}/application",
			"{svc}/domain",
			"{svc}/ports",
			modulePath + "/contracts",
			modulePath + "/internal/shared",
			"golang.org/x/sync",
		},
	},
	"transport": {
		forbidden: map[string]string{
			"{svc}/adapters/postgres": "transport must not reach storage directly",
		},
	},
}

func main() {
	violations := collectViolations(".")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations checks every non-test Go file under root's contexts and
// internal/shared trees. Files are reported relative to root.
func collectViolations(root string) []violation {
	var violations []violation

	for _, dir := range []string{contextsDir, "internal/shared"} {
		_ = filepath.WalkDir(filepath.Join(root, filepath.FromSlash(dir)), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			violations = append(violations, validateFile(path, filepath.ToSlash(rel))...)
			return nil
		})
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})
	return violations
}

func validateFile(path string, rel string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	var check func(importPath string) []string
	if strings.HasPrefix(rel, "internal/shared/") {
		check = checkShared
	} else {
		service, layer, ok := locate(rel)
		if !ok {
			return nil
		}
		check = func(importPath string) []string {
			return checkService(service, layer, importPath)
		}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		for _, rule := range check(importPath) {
			violations = append(violations, violation{File: rel, Line: line, Import: importPath, Rule: rule})
		}
	}
	return violations
}

// locate splits contexts/finance-core/<service>/<layer>/... into its service
// and layer. Files at the service root, such as module.go, have layer "".
func locate(rel string) (string, string, bool) {
	rest, ok := strings.CutPrefix(rel, contextsDir+"/")
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

func checkService(service string, layer string, importPath string) []string {
	var rules []string
	self := modulePath + "/" + contextsDir + "/" + service

	if _, known := peers[service]; !known {
		rules = append(rules, fmt.Sprintf("%s is not a registered finance-core service", service))
	}
	if peer, ok := peers[service]; ok && hasPrefix(importPath, modulePath+"/"+contextsDir+"/"+peer) {
		rules = append(rules, fmt.Sprintf("%s must not import %s; bridge through %s", service, peer, bridgeDir))
	} else if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, self) {
		rules = append(rules, "cross-module imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return rules
	}
	expand := func(prefix string) string { return strings.ReplaceAll(prefix, "{svc}", self) }

	prefixes := make([]string, 0, len(rule.forbidden))
	for prefix := range rule.forbidden {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if hasPrefix(importPath, expand(prefix)) {
			rules = append(rules, rule.forbidden[prefix])
		}
	}

	if rule.allowed == nil || isStdlib(importPath) {
		return rules
	}
	for _, prefix := range rule.allowed {
		if hasPrefix(importPath, expand(prefix)) {
			return rules
		}
	}
	return append(rules, layer+" import is outside explicit allowlist")
}

// checkShared keeps internal/shared usable from application code: it must not
// reach into either service or the runtime wiring.
func checkShared(importPath string) []string {
	switch {
	case hasPrefix(importPath, modulePath+"/contexts"):
		return []string{"shared helpers must not import a service"}
	case hasPrefix(importPath, modulePath+"/internal/platform"), hasPrefix(importPath, modulePath+"/internal/app"):
		return []string{"shared helpers must not import runtime infrastructure"}
	}
	return nil
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
