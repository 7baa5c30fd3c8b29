package database

import (
	"gopkg.in/yaml.v3"

	"github.com/onecd-go/onecd/internal/onecderr"
)

// LostObjectsYAML renders a FindLostObjects result as YAML, the format
// the onecd CLI's recover subcommand prints (spec.md §4.7 "Recovery
// operations" are reports, not structured return values the core
// mandates a wire format for; YAML matches the CLI's other
// human-readable output).
func LostObjectsYAML(lost []LostObject) (string, error) {
	buf, err := yaml.Marshal(lost)
	if err != nil {
		return "", onecderr.Wrap(onecderr.IoError, "database.LostObjectsYAML", err)
	}
	return string(buf), nil
}

// YAML renders a RecoveryReport.
func (r RecoveryReport) YAML() (string, error) {
	buf, err := yaml.Marshal(r)
	if err != nil {
		return "", onecderr.Wrap(onecderr.IoError, "database.RecoveryReport.YAML", err)
	}
	return string(buf), nil
}
