package source

import "github.com/ternarybob/lacuna/internal/models"

// readRoles are the source repository roles that grant read access.
var readRoles = map[string]struct{}{
	"Consumer":     {},
	"Contributor":  {},
	"Collaborator": {},
	"Coordinator":  {},
	"Manager":      {},
}

// ReadAuthorities extracts the authority ids that may read the node.
// Inherited entries count only while inheritance is enabled; locally set
// entries always count. Denied entries and non-read roles are skipped.
func ReadAuthorities(node *models.SourceNode) []string {
	if node == nil || node.Permissions == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var authorities []string

	add := func(entries []models.PermissionEntry) {
		for _, e := range entries {
			if e.AccessStatus != "ALLOWED" {
				continue
			}
			if _, ok := readRoles[e.Name]; !ok {
				continue
			}
			if e.AuthorityID == "" {
				continue
			}
			if _, dup := seen[e.AuthorityID]; dup {
				continue
			}
			seen[e.AuthorityID] = struct{}{}
			authorities = append(authorities, e.AuthorityID)
		}
	}

	if node.Permissions.IsInheritanceEnabled {
		add(node.Permissions.Inherited)
	}
	add(node.Permissions.LocallySet)

	return authorities
}
