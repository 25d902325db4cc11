package esclient

import "testing"

func TestPropertyNamesMatchesExpectedSchema(t *testing.T) {
	names := PropertyNames()
	schema := ExpectedSchema()

	if len(names) != len(schema.Mappings.Properties) {
		t.Fatalf("PropertyNames has %d entries, schema has %d", len(names), len(schema.Mappings.Properties))
	}
	for name := range schema.Mappings.Properties {
		if _, ok := names[name]; !ok {
			t.Errorf("PropertyNames missing %q", name)
		}
	}
}

func TestExpectedSchemaDisablesDynamicMapping(t *testing.T) {
	if ExpectedSchema().Mappings.Dynamic != "false" {
		t.Errorf("Dynamic = %q, want false", ExpectedSchema().Mappings.Dynamic)
	}
}

func TestTextPropertyCarriesKeywordSubfield(t *testing.T) {
	prop := textProperty()
	if prop.Type != "text" {
		t.Fatalf("Type = %q, want text", prop.Type)
	}
	kw, ok := prop.Fields["keyword"]
	if !ok {
		t.Fatal("expected a keyword sub-field")
	}
	if kw.Type != "keyword" || kw.Ignore == nil || *kw.Ignore != 256 {
		t.Errorf("keyword sub-field = %+v, want type=keyword ignore_above=256", kw)
	}
}

func TestIPAndStatusAndSizeFieldTypes(t *testing.T) {
	props := ExpectedSchema().Mappings.Properties
	cases := map[string]string{
		"ip":          "ip",
		"alt_ip":      "ip",
		"status_code": "short",
		"size":        "integer",
		"time":        "date",
	}
	for name, wantType := range cases {
		got, ok := props[name]
		if !ok {
			t.Fatalf("missing property %q", name)
		}
		if got.Type != wantType {
			t.Errorf("%s.Type = %q, want %q", name, got.Type, wantType)
		}
	}
	if props["time"].Format != "epoch_second" {
		t.Errorf("time.Format = %q, want epoch_second", props["time"].Format)
	}
}
