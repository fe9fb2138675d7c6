package models

// SourceNode is the projection of a source repository node used by
// discovery and ingestion. Field names follow the source's REST wire
// format (Alfresco-compatible).
type SourceNode struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	NodeType    string           `json:"nodeType"`
	IsFolder    bool             `json:"isFolder"`
	IsFile      bool             `json:"isFile"`
	ModifiedAt  string           `json:"modifiedAt,omitempty"`
	AspectNames []string         `json:"aspectNames,omitempty"`
	Path        *SourcePath      `json:"path,omitempty"`
	Content     *SourceContent   `json:"content,omitempty"`
	Permissions *NodePermissions `json:"permissions,omitempty"`
}

// SourcePath carries the display path of a node.
type SourcePath struct {
	Name string `json:"name"`
}

// SourceContent carries content metadata for file nodes.
type SourceContent struct {
	MimeType    string `json:"mimeType"`
	SizeInBytes int64  `json:"sizeInBytes,omitempty"`
}

// NodePermissions is the permission block returned by the source's node API.
type NodePermissions struct {
	IsInheritanceEnabled bool              `json:"isInheritanceEnabled"`
	Inherited            []PermissionEntry `json:"inherited,omitempty"`
	LocallySet           []PermissionEntry `json:"locallySet,omitempty"`
}

// PermissionEntry is a single permission assignment on a node.
type PermissionEntry struct {
	AuthorityID  string `json:"authorityId"`
	Name         string `json:"name"`
	AccessStatus string `json:"accessStatus"`
}

// NodeChildrenPage is one page of a folder children listing.
type NodeChildrenPage struct {
	List struct {
		Pagination struct {
			Count        int  `json:"count"`
			HasMoreItems bool `json:"hasMoreItems"`
			TotalItems   int  `json:"totalItems"`
			SkipCount    int  `json:"skipCount"`
			MaxItems     int  `json:"maxItems"`
		} `json:"pagination"`
		Entries []struct {
			Entry SourceNode `json:"entry"`
		} `json:"entries"`
	} `json:"list"`
}

// GroupMembershipPage is one page of a user's group membership listing.
type GroupMembershipPage struct {
	List struct {
		Pagination struct {
			Count        int  `json:"count"`
			HasMoreItems bool `json:"hasMoreItems"`
		} `json:"pagination"`
		Entries []struct {
			Entry struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName,omitempty"`
			} `json:"entry"`
		} `json:"entries"`
	} `json:"list"`
}

// PersonEntry is the response body of the source's people endpoints.
type PersonEntry struct {
	Entry struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName,omitempty"`
		Email     string `json:"email,omitempty"`
	} `json:"entry"`
}
