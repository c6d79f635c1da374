package salesforce

// Record is one row of a query result or one mutation body. Salesforce
// responses are schemaless JSON objects, so records stay maps.
type Record map[string]interface{}

// ID returns the record's Id field when present
func (r Record) ID() string {
	if id, ok := r["Id"].(string); ok {
		return id
	}
	return ""
}

// QueryResponse is one page of a query result as returned by the
// /query endpoints.
type QueryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
	Records        []Record `json:"records"`
}

// SaveResult is the per-record outcome of a create/delete call
type SaveResult struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Errors  []SaveError `json:"errors,omitempty"`
}

// SaveError carries provider-side error detail for one record
type SaveError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields,omitempty"`
}

// FieldDescribe is the subset of field metadata this library consumes
type FieldDescribe struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Custom   bool   `json:"custom"`
	Nillable bool   `json:"nillable"`
}

// ObjectDescribe is the subset of sobject metadata this library consumes
type ObjectDescribe struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Custom      bool            `json:"custom"`
	Queryable   bool            `json:"queryable"`
	Fields      []FieldDescribe `json:"fields"`
	KeyPrefix   string          `json:"keyPrefix"`
	LabelPlural string          `json:"labelPlural"`
}
