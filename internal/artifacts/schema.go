package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/bookvoice/internal/types"
)

// Class identifies an artifact class; values match pipeline stage names.
type Class string

const (
	ClassStructure  Class = "structure"
	ClassChunk      Class = "chunk"
	ClassTranslate  Class = "translate"
	ClassRewrite    Class = "rewrite"
	ClassSynthesize Class = "synthesize"
	ClassMerge      Class = "merge"
	ClassPackage    Class = "package"
	ClassManifest   Class = "manifest"
)

// Path returns the run-relative JSON path of the class.
func (c Class) Path() string {
	switch c {
	case ClassStructure:
		return StructurePath
	case ClassChunk:
		return ChunksPath
	case ClassTranslate:
		return TranslationsPath
	case ClassRewrite:
		return RewritesPath
	case ClassSynthesize:
		return AudioPartsPath
	case ClassMerge:
		return MergedPath
	case ClassPackage:
		return PackagePath
	case ClassManifest:
		return ManifestPath
	default:
		return ""
	}
}

// payloadFor returns a zero value of the Go type persisted for a class.
func payloadFor(c Class) (any, error) {
	switch c {
	case ClassStructure:
		return &StructureArtifact{}, nil
	case ClassChunk:
		return &ChunksArtifact{}, nil
	case ClassTranslate:
		return &TranslationsArtifact{}, nil
	case ClassRewrite:
		return &RewritesArtifact{}, nil
	case ClassSynthesize:
		return &AudioPartsArtifact{}, nil
	case ClassMerge:
		return &MergedArtifact{}, nil
	case ClassPackage:
		return &PackageArtifact{}, nil
	case ClassManifest:
		return &types.RunManifest{}, nil
	default:
		return nil, fmt.Errorf("unknown artifact class: %s", c)
	}
}

var (
	schemaMu sync.Mutex
	compiled = make(map[Class]*jsonschema.Schema)
)

// Schema returns the JSON schema for a class, reflected from its Go type.
func Schema(c Class) ([]byte, error) {
	v, err := payloadFor(c)
	if err != nil {
		return nil, err
	}
	reflector := invopop.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", c, err)
	}
	return b, nil
}

func compiledSchema(c Class) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := compiled[c]; ok {
		return s, nil
	}

	raw, err := Schema(c)
	if err != nil {
		return nil, err
	}
	name := string(c) + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", c, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", c, err)
	}
	compiled[c] = s
	return s, nil
}

// Validate checks raw artifact JSON against the class schema.
func Validate(c Class, data []byte) error {
	s, err := compiledSchema(c)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", c.Path(), err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", c.Path(), err)
	}
	return nil
}

// Load reads, validates, and decodes an artifact.
func Load[T any](s *Store, c Class) (*T, error) {
	data, err := s.ReadBytes(c.Path())
	if err != nil {
		return nil, err
	}
	if err := Validate(c, data); err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Path(), err)
	}
	return &v, nil
}

// Save validates v against the class schema and writes it atomically.
func Save(s *Store, c Class, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.Path(), err)
	}
	if err := Validate(c, data); err != nil {
		return err
	}
	return s.WriteBytes(c.Path(), append(data, '\n'))
}
