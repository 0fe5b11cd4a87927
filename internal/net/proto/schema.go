package proto

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"
)

// schemaTargets lists every wire payload exported by the schema endpoint.
var schemaTargets = map[string]reflect.Type{
	"clientMessage": reflect.TypeOf(ClientMessage{}),
	"state":         reflect.TypeOf(StateMessageV1{}),
	"topology":      reflect.TypeOf(TopologyMessageV1{}),
	"joinResponse":  reflect.TypeOf(JoinResponseV1{}),
}

// BuildSchemas reflects JSON Schemas for the wire payloads.
func BuildSchemas() (map[string]*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schemas := make(map[string]*jsonschema.Schema, len(schemaTargets))
	for name, target := range schemaTargets {
		schema := reflector.ReflectFromType(target)
		if schema == nil {
			return nil, fmt.Errorf("failed to reflect schema for %s", name)
		}
		schemas[name] = schema
	}
	return schemas, nil
}

// SchemaDocument renders every wire schema as one JSON document keyed by
// payload name.
func SchemaDocument() ([]byte, error) {
	schemas, err := BuildSchemas()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	document := make(map[string]json.RawMessage, len(schemas))
	for _, name := range names {
		raw, err := json.Marshal(schemas[name])
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", name, err)
		}
		document[name] = raw
	}
	return json.MarshalIndent(document, "", "  ")
}
