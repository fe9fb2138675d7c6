package models

// Sync status values for a lake document during ingestion.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "PENDING"
	SyncStatusProcessing SyncStatus = "PROCESSING"
	SyncStatusIndexed    SyncStatus = "INDEXED"
	SyncStatusFailed     SyncStatus = "FAILED"
)

// Well-known lake schema names.
const (
	TypeSysFile     = "SysFile"
	TypeSysFolder   = "SysFolder"
	MixinCinRemote  = "CinRemote"
	MixinSysEmbed   = "SysEmbed"
	EveryonePrinc   = "__Everyone__"
	PermissionRead  = "Read"
	GroupAuthPrefix = "GROUP_"
)

// LakeDocument mirrors the content lake's document wire format. One lake
// document exists per ingested source node; sys_name carries the source
// node id so documents can be found without a secondary index.
type LakeDocument struct {
	SysID          string   `json:"sys_id,omitempty"`
	SysPrimaryType string   `json:"sys_primaryType,omitempty"`
	SysName        string   `json:"sys_name,omitempty"`
	SysParentPath  string   `json:"sys_parentPath,omitempty"`
	SysMixinTypes  []string `json:"sys_mixinTypes,omitempty"`
	SysFulltext    string   `json:"sys_fulltextBinary,omitempty"`
	SysACL         []ACE    `json:"sys_acl,omitempty"`

	// CinRemote ingestion fields. This is where source metadata belongs.
	CinID                  string         `json:"cin_id,omitempty"`
	CinSourceID            string         `json:"cin_sourceId,omitempty"`
	CinPaths               []string       `json:"cin_paths,omitempty"`
	CinIngestProperties    map[string]any `json:"cin_ingestProperties,omitempty"`
	CinIngestPropertyNames []string       `json:"cin_ingestPropertyNames,omitempty"`

	// SysEmbed mixin fields, embeddings stored inline.
	SysembedEmbeddings []Embedding `json:"sysembed_embeddings,omitempty"`

	// Internal sync state, never sent to the lake.
	SyncStatus SyncStatus `json:"-"`
	SyncError  string     `json:"-"`

	// Flattened source metadata, internal only. Kept because downstream
	// enrichment reads these without re-parsing cin_ingestProperties.
	SourceNodeID          string   `json:"-"`
	SourceRepositoryID    string   `json:"-"`
	SourcePath            string   `json:"-"`
	SourceName            string   `json:"-"`
	SourceMimeType        string   `json:"-"`
	SourceModifiedAt      string   `json:"-"`
	SourceReadAuthorities []string `json:"-"`
}

// ACE is one access-control entry on a lake document. Exactly one of
// User or Group is set.
type ACE struct {
	Granted    bool           `json:"granted"`
	Permission string         `json:"permission"`
	User       *ACEPrincipal  `json:"user,omitempty"`
	Group      *ACEPrincipal  `json:"group,omitempty"`
}

// ACEPrincipal identifies a user or group by external id.
type ACEPrincipal struct {
	ID string `json:"id"`
}

// Embedding is one chunk embedding stored inline on the parent document.
// Type carries the embedding model name so mixed-model repositories can
// filter at query time.
type Embedding struct {
	Type     string             `json:"type,omitempty"`
	Text     string             `json:"text,omitempty"`
	Vector   []float64          `json:"vector,omitempty"`
	ChunkID  string             `json:"chunkId,omitempty"`
	Location *EmbeddingLocation `json:"location,omitempty"`
}

// EmbeddingLocation records where the chunk came from in the source document.
type EmbeddingLocation struct {
	Text        *TextLocation        `json:"text,omitempty"`
	Position    *PositionLocation    `json:"position,omitempty"`
	Timestamp   *TimestampLocation   `json:"timestamp,omitempty"`
	Spreadsheet *SpreadsheetLocation `json:"spreadsheet,omitempty"`
}

type TextLocation struct {
	Page      *int `json:"page,omitempty"`
	Paragraph *int `json:"paragraph,omitempty"`
}

type PositionLocation struct {
	Left   *int `json:"left,omitempty"`
	Top    *int `json:"top,omitempty"`
	Right  *int `json:"right,omitempty"`
	Bottom *int `json:"bottom,omitempty"`
}

type TimestampLocation struct {
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

type SpreadsheetLocation struct {
	Column *int   `json:"column,omitempty"`
	Row    *int   `json:"row,omitempty"`
	Sheet  string `json:"sheet,omitempty"`
}

// PatchOp is a single JSON Patch operation (RFC 6902).
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// LakeQueryResult wraps HXQL query responses.
type LakeQueryResult struct {
	Documents  []LakeDocument `json:"documents"`
	TotalCount int64          `json:"totalCount"`
	Count      int64          `json:"count"`
	Offset     int64          `json:"offset"`
	Limit      int64          `json:"limit"`
}

// LakeQuery is the request body for HXQL queries.
type LakeQuery struct {
	Query        string `json:"query"`
	RepositoryID string `json:"repositoryId,omitempty"`
	Limit        int64  `json:"limit,omitempty"`
	Offset       int64  `json:"offset"`
}

// VectorQuery is the request body for kNN vector searches.
type VectorQuery struct {
	Vector          []float64 `json:"vector"`
	EmbeddingType   string    `json:"embeddingType"`
	Query           string    `json:"query,omitempty"`
	RepositoryID    string    `json:"repositoryId,omitempty"`
	Limit           int64     `json:"limit,omitempty"`
	Offset          int64     `json:"offset"`
	TrackTotalCount bool      `json:"trackTotalCount"`
}

// VectorHit is one scored embedding returned by a vector search.
type VectorHit struct {
	ID            string             `json:"sysembed_id,omitempty"`
	DocumentID    string             `json:"sysembed_docId,omitempty"`
	EmbeddingType string             `json:"sysembed_type,omitempty"`
	Text          string             `json:"sysembed_text,omitempty"`
	Score         float64            `json:"sysembed_score,omitempty"`
	Location      *EmbeddingLocation `json:"sysembed_location,omitempty"`
}

// VectorSearchResult wraps vector search responses.
type VectorSearchResult struct {
	Embeddings []VectorHit `json:"embeddings"`
	TotalCount int64       `json:"totalCount"`
	Count      int64       `json:"count"`
}

// HasMixin reports whether the document carries the given mixin type.
func (d *LakeDocument) HasMixin(mixin string) bool {
	for _, m := range d.SysMixinTypes {
		if m == mixin {
			return true
		}
	}
	return false
}
