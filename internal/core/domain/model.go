package domain

// ColumnSpec describes a target column.
type ColumnSpec struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Purpose string `json:"purpose" yaml:"purpose"`
	Exists  bool   `json:"exists" yaml:"exists"`
}

// IndexSpec describes a target index.
type IndexSpec struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Purpose string `json:"purpose" yaml:"purpose"`
	Exists  bool   `json:"exists" yaml:"exists"`
}

// EmbeddingStrategy describes how vectors are computed for a record.
type EmbeddingStrategy struct {
	Model      string   `json:"model" yaml:"model"`
	Dimensions int      `json:"dimensions" yaml:"dimensions"`
	Fields     []string `json:"fields" yaml:"fields"`
	InputType  string   `json:"inputType" yaml:"input_type"`
}

// TransformRule documents how a source field becomes a target column.
type TransformRule struct {
	SourceField  string `json:"sourceField" yaml:"source_field"`
	TargetColumn string `json:"targetColumn" yaml:"target_column"`
	Transform    string `json:"transform" yaml:"transform"`
}

// DataModelSpec is the target schema derived from sample records.
type DataModelSpec struct {
	TableName    string            `json:"tableName" yaml:"table_name"`
	Columns      []ColumnSpec      `json:"columns" yaml:"columns"`
	Indexes      []IndexSpec       `json:"indexes" yaml:"indexes"`
	Embedding    EmbeddingStrategy `json:"embeddingStrategy" yaml:"embedding_strategy"`
	Transforms   []TransformRule   `json:"transformRules" yaml:"transform_rules"`
	MigrationSQL string            `json:"migrationSQL,omitempty" yaml:"migration_sql,omitempty"`
}

// ModelResult is the outcome of a schema readiness check.
type ModelResult struct {
	Ready          bool          `json:"ready" yaml:"ready"`
	Spec           DataModelSpec `json:"spec" yaml:"spec"`
	Message        string        `json:"message" yaml:"message"`
	MissingColumns []string      `json:"missingColumns,omitempty" yaml:"missing_columns,omitempty"`
}

// TableSchema is the live structure of a table as reported by the store.
type TableSchema struct {
	Exists  bool
	Columns []string
	Indexes []string
}

// HasColumn reports whether the live table has the named column.
func (t TableSchema) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// HasIndex reports whether the live table has the named index.
func (t TableSchema) HasIndex(name string) bool {
	for _, i := range t.Indexes {
		if i == name {
			return true
		}
	}
	return false
}
