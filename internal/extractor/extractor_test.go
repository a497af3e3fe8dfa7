package extractor

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigovern/gatekeeper/domain"
)

const petstoreYAML = `
openapi: 3.0.0
info:
  title: Petstore
  version: "1.0"
  contact:
    name: API Team
  license:
    name: Apache-2.0
  termsOfService: https://example.com/terms
servers:
  - url: https://api.example.com/v1
externalDocs:
  url: https://example.com/docs
security:
  - apiKey: []
paths:
  /pets:
    get:
      operationId: listPets
      tags:
        - Pets
    post:
      operationId: createPet
  /pets/{petId}:
    get:
      operationId: getPet
    delete: {}
    head: {}
    options: {}
components:
  schemas:
    Pet:
      type: object
      properties:
        id:
          type: integer
        name:
          type: string
        owner: {}
    Error:
      type: object
`

const petstoreJSON = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0", "contact": {"name": "x"}},
  "servers": [{"url": "https://api.example.com/v1"}],
  "paths": {"/pets": {"get": {"operationId": "listPets"}}}
}`

func TestPrune_RemovesBoilerplate(t *testing.T) {
	pruned, err := Prune(petstoreYAML)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(pruned), &doc))

	assert.NotContains(t, doc, "servers")
	assert.NotContains(t, doc, "externalDocs")
	assert.NotContains(t, doc, "security")

	info, ok := doc["info"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, info, "contact")
	assert.NotContains(t, info, "license")
	assert.NotContains(t, info, "termsOfService")
	assert.Equal(t, "Petstore", info["title"])
	assert.Equal(t, "1.0", info["version"])

	assert.Contains(t, doc, "paths")
	assert.Contains(t, doc, "components")
}

func TestPrune_JSONInput(t *testing.T) {
	pruned, err := Prune(petstoreJSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(pruned), &doc))
	assert.NotContains(t, doc, "servers")

	info := doc["info"].(map[string]any)
	assert.NotContains(t, info, "contact")
}

func TestPrune_CanonicalOutputIsStable(t *testing.T) {
	first, err := Prune(petstoreYAML)
	require.NoError(t, err)
	second, err := Prune(petstoreYAML)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPrune_EmptyDefinition(t *testing.T) {
	for _, input := range []string{"", "   \n\t"} {
		_, err := Prune(input)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidInput))
	}
}

func TestPrune_NonObjectDefinition(t *testing.T) {
	_, err := Prune("just a scalar")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidInput))
}

func TestPrune_UnparseableDefinition(t *testing.T) {
	_, err := Prune(`{"openapi": `)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeParseError))
}

func TestNormalizedPaths_TokensAndPlaceholders(t *testing.T) {
	paths, err := NormalizedPaths(petstoreYAML)
	require.NoError(t, err)

	assert.Contains(t, paths, "GET /pets")
	assert.Contains(t, paths, "GET /pets operationId:listpets")
	assert.Contains(t, paths, "GET /pets tag:pets")
	assert.Contains(t, paths, "POST /pets")
	assert.Contains(t, paths, "POST /pets operationId:createpet")
	assert.Contains(t, paths, "GET /pets/{param}")
	assert.Contains(t, paths, "GET /pets/{param} operationId:getpet")
	assert.Contains(t, paths, "DELETE /pets/{param}")
	assert.Contains(t, paths, "HEAD /pets/{param}")
	assert.Contains(t, paths, "OPTIONS /pets/{param}")

	assert.True(t, sort.StringsAreSorted(paths))
}

func TestNormalizedPaths_NoDetailTokensForHeadOptions(t *testing.T) {
	paths, err := NormalizedPaths(`
paths:
  /things:
    head:
      operationId: headThings
    options:
      operationId: optionsThings
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"HEAD /things", "OPTIONS /things"}, paths)
}

func TestNormalizedSchemas_PropertyTokens(t *testing.T) {
	schemas, err := NormalizedSchemas(petstoreYAML)
	require.NoError(t, err)

	assert.Contains(t, schemas, "schema:pet")
	assert.Contains(t, schemas, "schema:pet.id:integer")
	assert.Contains(t, schemas, "schema:pet.name:string")
	// Properties without an explicit type default to object.
	assert.Contains(t, schemas, "schema:pet.owner:object")
	assert.Contains(t, schemas, "schema:error")
	assert.True(t, sort.StringsAreSorted(schemas))
}

func TestExtractFeatures_SortedUnion(t *testing.T) {
	features, err := ExtractFeatures(petstoreYAML)
	require.NoError(t, err)

	assert.Contains(t, features, "GET /pets")
	assert.Contains(t, features, "schema:pet")
	assert.True(t, sort.StringsAreSorted(features))

	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		_, dup := seen[f]
		assert.False(t, dup, "duplicate feature %q", f)
		seen[f] = struct{}{}
	}
}

func TestExtractFeatures_NoPathsOrSchemas(t *testing.T) {
	features, err := ExtractFeatures(`{"openapi": "3.0.0"}`)
	require.NoError(t, err)
	assert.Empty(t, features)
}
