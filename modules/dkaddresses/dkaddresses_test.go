package dkaddresses

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	path  string
	query url.Values
}

func setup(t *testing.T, responses map[string]string) (map[string]*core.Tool, *[]request) {
	t.Helper()
	var seen []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, request{path: r.URL.Path, query: r.URL.Query()})
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"type":"ResourceNotFoundError"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	tools := map[string]*core.Tool{}
	for _, tool := range New(srv.URL).Tools(core.ModuleEnv{}) {
		tools[tool.Name()] = tool
	}
	return tools, &seen
}

func TestAddressSearch(t *testing.T) {
	tools, seen := setup(t, map[string]string{
		"/adresser": `[{
			"id": "0a3f50a0-4660-32b8-e044-0003ba298018",
			"betegnelse": "Nørrebrogade 1, 2200 København N",
			"vejnavn": "Nørrebrogade", "husnr": "1",
			"postnr": "2200", "postnrnavn": "København N",
			"kommunekode": "0101",
			"x": 12.5603, "y": 55.6876,
			"etage": "2", "dør": "th"
		}]`,
	})

	text, err := tools["dk_address_search"].Call(context.Background(), map[string]interface{}{
		"query":       "Nørrebrogade 1",
		"postal_code": "2200",
	})
	require.NoError(t, err)

	q := (*seen)[0].query
	assert.Equal(t, "Nørrebrogade 1", q.Get("q"))
	assert.Equal(t, "mini", q.Get("struktur"))
	assert.Equal(t, "10", q.Get("per_side"))
	assert.Equal(t, "2200", q.Get("postnr"))
	assert.Empty(t, q.Get("kommunekode"))

	assert.Contains(t, text, "### 1. Nørrebrogade 1, 2200 København N\n**Nørrebrogade 1, 2200 København N**")
	assert.Contains(t, text, "Postal: 2200 København N")
	assert.Contains(t, text, "Municipality code: 0101")
	assert.Contains(t, text, "Coordinates: 55.687600°N, 12.560300°E")
	assert.Contains(t, text, "Floor: 2, door th")
}

func TestAddressSearch_Empty(t *testing.T) {
	tools, _ := setup(t, map[string]string{"/adresser": `[]`})

	text, err := tools["dk_address_search"].Call(context.Background(), map[string]interface{}{"query": "zzz"})
	result := core.ToResult(text, err)
	assert.False(t, result.IsError)
	assert.ErrorIs(t, err, core.ErrEmptyResult)
}

func TestAddressSearch_LimitOutOfRange(t *testing.T) {
	tools, seen := setup(t, nil)

	_, err := tools["dk_address_search"].Call(context.Background(), map[string]interface{}{
		"query": "Vesterbro",
		"limit": float64(500),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, *seen)
}

func TestReverseGeocode(t *testing.T) {
	tools, seen := setup(t, map[string]string{
		"/adgangsadresser/reverse": `{"betegnelse": "Rådhuspladsen 1, 1550 København V", "postnr": "1550", "postnrnavn": "København V"}`,
	})

	text, err := tools["dk_reverse_geocode"].Call(context.Background(), map[string]interface{}{
		"latitude":  55.6761,
		"longitude": 12.5683,
	})
	require.NoError(t, err)
	q := (*seen)[0].query
	assert.Equal(t, "12.5683", q.Get("x"))
	assert.Equal(t, "55.6761", q.Get("y"))
	assert.Equal(t, "**Rådhuspladsen 1, 1550 København V**\nPostal: 1550 København V", text)
}

func TestPostalCodeLookup(t *testing.T) {
	tools, _ := setup(t, map[string]string{
		"/postnumre/2200": `{
			"nr": "2200", "navn": "København N",
			"bbox": [12.5127, 55.6867, 12.5722, 55.7189],
			"kommuner": [{"kode": "0101", "navn": "København"}]
		}`,
	})

	text, err := tools["dk_postal_code_lookup"].Call(context.Background(), map[string]interface{}{"postal_code": "2200"})
	require.NoError(t, err)
	assert.Equal(t, "## 2200 København N\n"+
		"**Bounding box:** 55.6867°N to 55.7189°N, 12.5127°E to 12.5722°E\n"+
		"**Municipalities:** København (0101)", text)
}

func TestPostalCodeLookup_NotFound(t *testing.T) {
	tools, _ := setup(t, nil)

	text, err := tools["dk_postal_code_lookup"].Call(context.Background(), map[string]interface{}{"postal_code": "0000"})
	result := core.ToResult(text, err)
	require.True(t, result.IsError)
	assert.Contains(t, err.Error(), "DAWA API error (404)")
}

func TestMunicipalityLookup(t *testing.T) {
	tools, seen := setup(t, map[string]string{
		"/kommuner/0101": `{"kode": "0101", "navn": "København", "regionskode": "1084", "bbox": [12.45, 55.61, 12.73, 55.73]}`,
		"/kommuner":      `[{"kode": "0269", "navn": "Solrød"}]`,
	})

	text, err := tools["dk_municipality_lookup"].Call(context.Background(), map[string]interface{}{"code": "0101"})
	require.NoError(t, err)
	assert.Equal(t, "## København (0101)\n**Region code:** 1084\n**Bounds:** 55.6100°N to 55.7300°N", text)

	text, err = tools["dk_municipality_lookup"].Call(context.Background(), map[string]interface{}{"name": "Solrød"})
	require.NoError(t, err)
	assert.Equal(t, "## Solrød (0269)", text)
	assert.Equal(t, "Solrød", (*seen)[1].query.Get("q"))

	_, err = tools["dk_municipality_lookup"].Call(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, "Provide either code or name.", err.Error())
	assert.True(t, core.ToResult("", err).IsError)
}

func TestNearbyAddresses(t *testing.T) {
	tools, seen := setup(t, map[string]string{
		"/adgangsadresser": `[{"betegnelse": "Rådhuspladsen 1, 1550 København V", "x": 12.5683, "y": 55.6761}]`,
	})

	text, err := tools["dk_nearby_addresses"].Call(context.Background(), map[string]interface{}{
		"latitude":  55.6761,
		"longitude": 12.5683,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.5683,55.6761,200", (*seen)[0].query.Get("cirkel"))
	assert.Equal(t, "## Addresses within 200m\n\n"+
		"1. **Rådhuspladsen 1, 1550 København V** (0m away)\n   55.676100°N, 12.568300°E", text)
}
