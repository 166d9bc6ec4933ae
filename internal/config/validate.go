// This file adds a lightweight linter/validator for loaded config values. It
// performs static checks over the decoded catalog and collection configs and
// returns a list of issues (errors and warnings) that callers can surface in
// the CLI or tests. A severity-error issue aborts the run before any
// database or network work starts.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// File is the collection config file the finding belongs to (empty for
// catalog-level findings). Path is a dotted path into the config, e.g.
// "collections[0].coll_table_attributes[2].kind".
type Issue struct {
	Severity IssueSeverity
	File     string
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where one is expected.
func (i Issue) Error() string {
	if i.File == "" {
		return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
	}
	return fmt.Sprintf("%s in %s at %s: %s", i.Severity, i.File, i.Path, i.Message)
}

// HasErrors reports whether any issue carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateCatalog performs static validation of the parent-catalog config.
func ValidateCatalog(c Catalog) []Issue {
	var issues []Issue

	require := func(path, val string) {
		if strings.TrimSpace(val) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: path + " must not be empty"})
		}
	}
	require("catalog_id", c.CatalogID)
	require("catalog_description", c.Description)
	require("href", c.Href)
	require("solr", c.Solr)
	require("db.dbtype", c.DB.Type)

	switch c.OnProbeError {
	case "", ProbeAssumeMissing, ProbeAbort:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "on_probe_error",
			Message:  fmt.Sprintf("unknown policy %q; use %q or %q", c.OnProbeError, ProbeAssumeMissing, ProbeAbort),
		})
	}
	return issues
}

// ValidateFiles validates every loaded collection config file.
func ValidateFiles(files []File) []Issue {
	var issues []Issue
	for _, f := range files {
		if len(f.Collections) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				File:     f.Name,
				Path:     "collections",
				Message:  "key is missing or empty",
			})
			continue
		}
		for i, c := range f.Collections {
			issues = append(issues, validateCollection(f.Name, fmt.Sprintf("collections[%d]", i), c)...)
		}
	}
	return issues
}

// validateCollection checks one merged collection config.
func validateCollection(file, path string, c Collection) []Issue {
	var issues []Issue

	addErr := func(sub, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, File: file, Path: path + "." + sub, Message: msg})
	}
	addWarn := func(sub, msg string) {
		issues = append(issues, Issue{Severity: SeverityWarning, File: file, Path: path + "." + sub, Message: msg})
	}

	if strings.TrimSpace(c.ID) == "" {
		addErr("coll_id", "key is missing")
	}
	if c.Ignore {
		// Ignored collections are never built; the dataset mapping may be
		// incomplete on purpose.
		return issues
	}
	if strings.TrimSpace(c.Description) == "" {
		addErr("coll_description", "key is missing")
	}
	if strings.TrimSpace(c.License) == "" {
		addErr("coll_license", "key is missing")
	}
	if strings.TrimSpace(c.Table) == "" {
		addErr("coll_table", "key is missing")
	}
	if strings.TrimSpace(c.Where) == "" {
		addWarn("coll_where", "no filter predicate; the whole table will be selected")
	}
	if len(c.Attributes) == 0 {
		addErr("coll_table_attributes", "key is missing or empty")
		return issues
	}

	valid := map[string]bool{}
	for _, k := range Kinds {
		valid[k] = true
	}
	hasDate := false
	for i, a := range c.Attributes {
		sub := fmt.Sprintf("coll_table_attributes[%d]", i)
		if strings.TrimSpace(a.Name) == "" {
			addErr(sub+".name", "key is missing")
		}
		if strings.TrimSpace(a.Column) == "" {
			addErr(sub+".column", "key is missing")
		}
		if !valid[a.Kind] {
			addErr(sub+".kind", fmt.Sprintf("unknown kind %q", a.Kind))
		}
		if a.Name == "date" || a.Name == "item:start_datetime" {
			hasDate = true
		}
	}
	if !hasDate {
		addErr("coll_table_attributes", `neither a "date" nor an "item:start_datetime" attribute is declared`)
	}
	if _, ok := c.Attribute("id"); !ok {
		addErr("coll_table_attributes", `no "id" attribute is declared`)
	}
	if _, ok := c.Attribute("geometry"); !ok {
		addErr("coll_table_attributes", `no "geometry" attribute is declared`)
	}

	if _, ok := c.Attribute("date"); ok {
		if _, err := c.DateLayout(); err != nil {
			addErr("coll_date_format", err.Error())
		}
	}

	for i, a := range c.Assets {
		sub := fmt.Sprintf("assets[%d]", i)
		if strings.TrimSpace(a.IDFormat) == "" {
			addErr(sub+".id_format", "key is missing")
		}
		if strings.TrimSpace(a.URL) == "" {
			addErr(sub+".url", "key is missing")
		}
	}
	return issues
}
