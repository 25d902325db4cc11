package esclient

// Schema is the fixed index mapping from spec §3: one property per Record
// field, dynamic mapping disabled. PropertyNames must equal the set of
// Record field names exactly, in both directions.
type Schema struct {
	Mappings SchemaMappings `json:"mappings"`
}

type SchemaMappings struct {
	// Dynamic is a string, not a bool: a live index's GET response
	// serializes it as "false"/"true", matching the original's
	// dynamic: "false".
	Dynamic    string                  `json:"dynamic"`
	Properties map[string]PropertyDef `json:"properties"`
}

// PropertyDef describes one mapped field. Fields is only populated for
// text properties carrying a keyword sub-field.
type PropertyDef struct {
	Type   string                 `json:"type"`
	Format string                 `json:"format,omitempty"`
	Fields map[string]PropertyDef `json:"fields,omitempty"`
	Ignore *int                   `json:"ignore_above,omitempty"`
}

func textProperty() PropertyDef {
	ignoreAbove := 256
	return PropertyDef{
		Type: "text",
		Fields: map[string]PropertyDef{
			"keyword": {Type: "keyword", Ignore: &ignoreAbove},
		},
	}
}

// ExpectedSchema is the one and only valid mapping for the index this
// program owns.
func ExpectedSchema() Schema {
	return Schema{
		Mappings: SchemaMappings{
			Dynamic: "false",
			Properties: map[string]PropertyDef{
				"ip":          {Type: "ip"},
				"alt_ip":      {Type: "ip"},
				"host":        textProperty(),
				"request":     textProperty(),
				"refer":       textProperty(),
				"status_code": {Type: "short"},
				"size":        {Type: "integer"},
				"user_agent":  textProperty(),
				"time":        {Type: "date", Format: "epoch_second"},
			},
		},
	}
}

// PropertyNames returns the set of property names in the schema.
func PropertyNames() map[string]struct{} {
	names := make(map[string]struct{})
	for name := range ExpectedSchema().Mappings.Properties {
		names[name] = struct{}{}
	}
	return names
}
