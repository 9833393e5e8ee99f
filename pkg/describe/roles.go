package describe

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// DefaultRoleName is the role used when neither the config nor the
// command line names one.
const DefaultRoleName = "describe"

// Role is a named assistant persona. The name keys the conversation
// session; the system prompt sets the assistant's behavior; instructions
// are extra directive text added to the drafting prompt.
type Role struct {
	Name         string `yaml:"name"`
	System       string `yaml:"system"`
	Instructions string `yaml:"instructions"`
}

// BuiltinRole returns the describe role that ships with jib.
func BuiltinRole() Role {
	return Role{
		Name:   DefaultRoleName,
		System: SystemPromptDescribe,
	}
}

// LoadRole resolves a role name to its definition. A <name>.yaml or
// <name>.yml file in rolesDir wins over the built-in, so users can
// override the default persona. A file may omit name (defaults to the
// filename) and system (defaults to the built-in system prompt, so a
// role can add instructions without rewriting the whole persona).
func LoadRole(rolesDir, name string) (Role, error) {
	if name == "" {
		name = DefaultRoleName
	}

	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(rolesDir, name+ext)
		role, err := loadRoleFile(path)
		if err != nil {
			if jiberrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Role{}, err
		}
		if role.Name == "" {
			role.Name = name
		}
		if role.System == "" {
			role.System = SystemPromptDescribe
		}
		return role, nil
	}

	if name == DefaultRoleName {
		return BuiltinRole(), nil
	}
	return Role{}, jiberrors.NewConfigError("ai.role",
		fmt.Sprintf("unknown role %q: no %s.yaml in %s", name, name, rolesDir))
}

// loadRoleFile reads and parses a role definition file.
func loadRoleFile(path string) (Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if jiberrors.Is(err, fs.ErrNotExist) {
			return Role{}, err
		}
		return Role{}, jiberrors.Wrapf(err, "failed to read role file %s", path)
	}

	var role Role
	if err := yaml.Unmarshal(data, &role); err != nil {
		return Role{}, jiberrors.Wrapf(err, "failed to parse role file %s", path)
	}
	return role, nil
}
