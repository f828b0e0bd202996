package reserve

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Optional is a YAML field that distinguishes "absent" (inherit the global
// value) from "explicitly null" (omit the field) from "set". Plain pointer
// fields cannot tell the first two apart, which is exactly the distinction
// the batch spec needs.
type Optional[T any] struct {
	Defined bool
	Null    bool
	Value   T
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Optional[T]) UnmarshalYAML(node *yaml.Node) error {
	o.Defined = true
	if node.Tag == "!!null" {
		o.Null = true
		return nil
	}
	return node.Decode(&o.Value)
}

// Timestamp accepts the date formats operators actually put in reservation
// files: RFC 3339, the asset database's "2006-01-02 15:04:05", and bare
// dates.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	// Unquoted YAML timestamps decode directly.
	var parsed time.Time
	if err := node.Decode(&parsed); err == nil {
		t.Time = parsed
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognized format", s)
}

// Override is the per-machine section of a batch spec. Every field is
// optional; absent fields inherit the globals.
type Override struct {
	Username Optional[string]    `yaml:"username"`
	Start    Optional[Timestamp] `yaml:"start"`
	End      Optional[Timestamp] `yaml:"end"`
	Comment  Optional[string]    `yaml:"comment"`
	Epic     Optional[string]    `yaml:"epic"`
}

// BatchSpec is the declarative reservation file: global defaults plus a
// mapping of machine identifier to override. Servers stays a yaml.Node so
// machines are resolved in the order the file lists them.
type BatchSpec struct {
	Username string    `yaml:"username"`
	Start    Timestamp `yaml:"start"`
	End      Timestamp `yaml:"end"`
	Comment  *string   `yaml:"comment"`
	Jira     string    `yaml:"jira"`
	Servers  yaml.Node `yaml:"servers"`
}

// ValidationError names the machine and field that made a batch spec
// unusable.
type ValidationError struct {
	Machine string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reservation for %q: field %s: %s", e.Machine, e.Field, e.Reason)
}

// ParseBatchSpec decodes a reservation batch file.
func ParseBatchSpec(data []byte) (*BatchSpec, error) {
	var spec BatchSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse reservation file: %w", err)
	}
	if spec.Servers.Kind != 0 && spec.Servers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse reservation file: servers must be a mapping")
	}
	return &spec, nil
}

// Resolve expands the batch into one fully-resolved reservation per listed
// machine, in file order. Username, start, and end are mandatory after
// inheritance; an explicit null for any of them is a configuration error,
// while a null comment or epic omits that part of the annotation.
func (s *BatchSpec) Resolve() ([]Reservation, error) {
	var out []Reservation
	content := s.Servers.Content
	for i := 0; i+1 < len(content); i += 2 {
		machine := content[i].Value
		var ov Override
		if content[i+1].Tag != "!!null" {
			if err := content[i+1].Decode(&ov); err != nil {
				return nil, &ValidationError{Machine: machine, Field: "override", Reason: err.Error()}
			}
		}

		username, err := resolveMandatoryString(machine, "username", ov.Username, s.Username)
		if err != nil {
			return nil, err
		}
		start, err := resolveMandatoryTime(machine, "start", ov.Start, s.Start)
		if err != nil {
			return nil, err
		}
		end, err := resolveMandatoryTime(machine, "end", ov.End, s.End)
		if err != nil {
			return nil, err
		}

		globalComment := ""
		if s.Comment != nil {
			globalComment = *s.Comment
		}
		comment := resolveOptionalString(ov.Comment, globalComment)
		epic := resolveOptionalString(ov.Epic, s.Jira)

		window := Window{Start: start, End: end}
		if err := window.Validate(); err != nil {
			return nil, &ValidationError{Machine: machine, Field: "window", Reason: err.Error()}
		}

		final := epic
		if comment != "" {
			if final != "" {
				final += "\n"
			}
			final += comment
		}
		out = append(out, Reservation{
			Machine: machine,
			User:    username,
			Window:  window,
			Comment: final,
		})
	}
	return out, nil
}

func resolveMandatoryString(machine, field string, ov Optional[string], global string) (string, error) {
	if ov.Defined {
		if ov.Null {
			return "", &ValidationError{Machine: machine, Field: field, Reason: "must not be null"}
		}
		return ov.Value, nil
	}
	if global == "" {
		return "", &ValidationError{Machine: machine, Field: field, Reason: "missing globally and per machine"}
	}
	return global, nil
}

func resolveMandatoryTime(machine, field string, ov Optional[Timestamp], global Timestamp) (time.Time, error) {
	if ov.Defined {
		if ov.Null {
			return time.Time{}, &ValidationError{Machine: machine, Field: field, Reason: "must not be null"}
		}
		return ov.Value.Time, nil
	}
	if global.IsZero() {
		return time.Time{}, &ValidationError{Machine: machine, Field: field, Reason: "missing globally and per machine"}
	}
	return global.Time, nil
}

// resolveOptionalString applies explicit-null-omits semantics for the
// annotation fields.
func resolveOptionalString(ov Optional[string], global string) string {
	if ov.Defined {
		if ov.Null {
			return ""
		}
		return ov.Value
	}
	return global
}
