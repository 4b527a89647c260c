package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/itsneelabh/mcp-nordic/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGazetteer = Gazetteer{
	"copenhagen": {Latitude: 55.676, Longitude: 12.568, DisplayName: "Copenhagen"},
	"aarhus":     {Latitude: 56.163, Longitude: 10.204, DisplayName: "Aarhus"},
	"tromsø":     {Latitude: 69.649, Longitude: 18.956, DisplayName: "Tromsø"},
	"tromso":     {Latitude: 69.649, Longitude: 18.956, DisplayName: "Tromsø"},
}

type stubGeocoder struct {
	place *Place
	err   error
	calls int32
}

func (s *stubGeocoder) Search(ctx context.Context, name string) (*Place, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.place, s.err
}

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0, Haversine(55.676, 12.568, 55.676, 12.568))

	d := Haversine(55.676, 12.568, 56.163, 10.204)
	assert.InDelta(t, 157000, d, 2000, "Copenhagen to Aarhus straight line")

	assert.Equal(t, Haversine(55.676, 12.568, 56.163, 10.204), Haversine(56.163, 10.204, 55.676, 12.568))
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		input   string
		ok      bool
		lat     float64
		lon     float64
		display string
	}{
		{"55.6761,12.5683", true, 55.6761, 12.5683, "55.6761°N, 12.5683°E"},
		{" 60.17 , 24.94 ", true, 60.17, 24.94, "60.17°N, 24.94°E"},
		{"-33.9,18.4", true, -33.9, 18.4, "-33.9°N, 18.4°E"},
		{"200,500", true, 200, 500, "200°N, 500°E"},
		{"55.6761", false, 0, 0, ""},
		{"Copenhagen", false, 0, 0, ""},
		{"55.6, 12.5, 3", false, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			loc, ok := ParseCoordinates(tt.input)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.lat, loc.Latitude)
			assert.Equal(t, tt.lon, loc.Longitude)
			assert.Equal(t, tt.display, loc.DisplayName)
		})
	}
}

func TestResolver_Gazetteer(t *testing.T) {
	geocoder := &stubGeocoder{}
	r := &Resolver{CountryCode: "DK", CountryName: "Denmark", Gazetteer: testGazetteer, Geocoder: geocoder}

	for _, input := range []string{"Copenhagen", "COPENHAGEN", "  copenhagen "} {
		loc, err := r.Resolve(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, 55.676, loc.Latitude)
		assert.Equal(t, 12.568, loc.Longitude)
		assert.Equal(t, "Copenhagen", loc.DisplayName)
	}

	loc, err := r.Resolve(context.Background(), "Tromso")
	require.NoError(t, err)
	assert.Equal(t, "Tromsø", loc.DisplayName)

	assert.Zero(t, atomic.LoadInt32(&geocoder.calls))
}

func TestResolver_CoordinatesSkipGeocoder(t *testing.T) {
	geocoder := &stubGeocoder{}
	r := &Resolver{CountryCode: "NO", CountryName: "Norway", Gazetteer: testGazetteer, Geocoder: geocoder}

	loc, err := r.Resolve(context.Background(), "59.9139,10.7522")
	require.NoError(t, err)
	assert.Equal(t, 59.9139, loc.Latitude)
	assert.Equal(t, 10.7522, loc.Longitude)
	assert.Zero(t, atomic.LoadInt32(&geocoder.calls))
}

func TestResolver_Geocoder(t *testing.T) {
	tests := []struct {
		name     string
		place    *Place
		geoErr   error
		wantName string
		wantErr  error
	}{
		{
			name:     "matching country",
			place:    &Place{Location: Location{Latitude: 55.9, Longitude: 12.3, DisplayName: "Gilleleje"}, CountryCode: "dk"},
			wantName: "Gilleleje",
		},
		{
			name:    "other country",
			place:   &Place{Location: Location{DisplayName: "Paris"}, CountryCode: "FR"},
			wantErr: core.ErrLocationNotFound,
		},
		{
			name:    "no hit",
			wantErr: core.ErrLocationNotFound,
		},
		{
			name:    "transport failure",
			geoErr:  context.DeadlineExceeded,
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{
				CountryCode: "DK",
				CountryName: "Denmark",
				Gazetteer:   testGazetteer,
				Geocoder:    &stubGeocoder{place: tt.place, err: tt.geoErr},
			}
			loc, err := r.Resolve(context.Background(), "somewhere")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, loc.DisplayName)
		})
	}
}

func TestResolver_NotFoundMessage(t *testing.T) {
	dk := &Resolver{
		CountryCode: "DK",
		CountryName: "Denmark",
		Hint:        "a city name, postal code, or lat,lon coordinates",
	}
	_, err := dk.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, `Could not find location "Atlantis" in Denmark. Try a city name, postal code, or lat,lon coordinates.`, err.Error())

	var te *core.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, core.CategoryNotFound, te.Category)
	assert.Equal(t, "Atlantis", te.Details["input"])

	fi := &Resolver{CountryCode: "FI", CountryName: "Finland"}
	_, err = fi.Resolve(context.Background(), "Atlantis")
	assert.Equal(t, `Could not find location "Atlantis" in Finland. Try a city name or lat,lon coordinates.`, err.Error())
}

func TestOpenMeteoGeocoder(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("name")
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		switch gotQuery {
		case "Skagen":
			_, _ = w.Write([]byte(`{"results":[{"name":"Skagen","latitude":57.72,"longitude":10.58,"country_code":"DK"}]}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	g := NewOpenMeteoGeocoder(core.ModuleEnv{GeocodingURL: srv.URL})

	place, err := g.Search(context.Background(), "Skagen")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Skagen", place.DisplayName)
	assert.Equal(t, 57.72, place.Latitude)
	assert.Equal(t, "DK", place.CountryCode)

	place, err = g.Search(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, place)

	place, err = g.Search(context.Background(), "broken")
	require.NoError(t, err, "upstream error status counts as no match")
	assert.Nil(t, place)
}
