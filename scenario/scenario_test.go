package scenario_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/pagecheck/scenario"
)

var loadTime = time.UnixMilli(1767225600000)

func TestBuiltin_LoadsAllFixtures(t *testing.T) {
	t.Parallel()

	scenarios, err := scenario.Builtin(loadTime)
	require.NoError(t, err)
	require.Len(t, scenarios, 23)

	assert.Equal(t, "lpb-initial-state", scenarios[0].ID)
	assert.Equal(t, "lpb-rich-text-bullets", scenarios[19].ID)
	assert.Equal(t, "lpb-e2e-gated-guide", scenarios[20].ID)

	require.NoError(t, scenario.ValidateAll(scenarios))
}

func TestBuiltin_ExpandsTimestampOncePerLoad(t *testing.T) {
	t.Parallel()

	scenarios, err := scenario.Builtin(loadTime)
	require.NoError(t, err)

	journeys := scenario.Filter(scenarios, scenario.TagJourney)
	require.Len(t, journeys, 3)
	for _, s := range journeys {
		headline := s.Payload.Get("headline")
		assert.True(t, strings.HasSuffix(headline, " 1767225600000"), headline)
		assert.NotContains(t, headline, scenario.TimestampPlaceholder)
	}
}

func TestPayload_AbsentAndEmptyMeanSkip(t *testing.T) {
	t.Parallel()

	scenarios, err := scenario.Builtin(loadTime)
	require.NoError(t, err)
	s, ok := scenario.Find(scenarios, "lpb-e2e-ungated-report")
	require.True(t, ok)

	_, ok = s.Payload.String("industry")
	assert.False(t, ok, "empty string is skipped")
	_, ok = s.Payload.String("formTemplate")
	assert.False(t, ok, "absent key is skipped")
	assert.Empty(t, s.Payload.Strings("products"))

	title, ok := s.Payload.String("cardTitle")
	assert.True(t, ok)
	assert.Equal(t, "Digital Marketing Report", title)
}

func TestPayload_Asset(t *testing.T) {
	t.Parallel()

	p := scenario.Payload{
		"marqueeImage": "asset:sample-marquee.png",
		"cardImage":    "/tmp/card.png",
		"bodyImage":    "",
	}

	got, ok := p.Asset("marqueeImage", "testdata")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("testdata", "sample-marquee.png"), got)

	got, ok = p.Asset("cardImage", "testdata")
	require.True(t, ok)
	assert.Equal(t, "/tmp/card.png", got)

	_, ok = p.Asset("bodyImage", "testdata")
	assert.False(t, ok)
}

func TestPayload_CopiesAreIndependent(t *testing.T) {
	t.Parallel()

	scenarios, err := scenario.Builtin(loadTime)
	require.NoError(t, err)
	s, _ := scenario.Find(scenarios, "lpb-e2e-gated-guide")

	form := s.Payload.Map("formTestData")
	form["email"] = "changed@example.com"

	data, ok := s.Payload.FormData()
	require.True(t, ok)
	assert.Equal(t, "qa-test@adobetest.com", data.Email)
	assert.Equal(t, "95110", data.ZipCode)

	clone := s.Payload.Clone()
	clone["headline"] = "other"
	assert.NotEqual(t, "other", s.Payload.Get("headline"))
}

func TestFilter(t *testing.T) {
	t.Parallel()

	scenarios, err := scenario.Builtin(loadTime)
	require.NoError(t, err)

	pdf := scenario.Filter(scenarios, "@pdf")
	assert.Equal(t, []string{"lpb-pdf-upload", "lpb-pdf-clear", "lpb-video-hides-pdf"}, ids(pdf))

	smokeJourneys := scenario.Filter(scenarios, "e2e", "@gated")
	assert.Equal(t, []string{"lpb-e2e-gated-guide"}, ids(smokeJourneys))

	assert.Len(t, scenario.Filter(scenarios), len(scenarios))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	journey := func(p scenario.Payload) scenario.Scenario {
		return scenario.Scenario{ID: "x", Tags: []string{"@lpb", "@e2e"}, Payload: p}
	}

	tests := []struct {
		name    string
		s       scenario.Scenario
		wantErr string
	}{
		{
			name: "empty builder payload",
			s:    scenario.Scenario{ID: "lpb-initial-state", Payload: scenario.Payload{}},
		},
		{
			name:    "unknown content type",
			s:       scenario.Scenario{ID: "x", Payload: scenario.Payload{"contentType": "Podcast"}},
			wantErr: `content type "Podcast"`,
		},
		{
			name:    "unknown gating",
			s:       scenario.Scenario{ID: "x", Payload: scenario.Payload{"gated": "Maybe"}},
			wantErr: `gating mode "Maybe"`,
		},
		{
			name:    "video with pdf",
			s:       scenario.Scenario{ID: "x", Payload: scenario.Payload{"contentType": "Video/Demo", "pdfAsset": "asset:a.pdf"}},
			wantErr: "must not carry pdfAsset",
		},
		{
			name:    "gated journey without campaign",
			s:       journey(scenario.Payload{"contentType": "Guide", "gated": "Gated", "headline": "h", "formTemplate": "Medium"}),
			wantErr: "gated journey needs campaignId",
		},
		{
			name:    "video journey without url",
			s:       journey(scenario.Payload{"contentType": "Video/Demo", "gated": "Ungated", "headline": "h"}),
			wantErr: "needs videoUrl",
		},
		{
			name: "valid ungated journey",
			s:    journey(scenario.Payload{"contentType": "Report", "gated": "Ungated", "headline": "h"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := scenario.Validate(tt.s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAll_DuplicateIDs(t *testing.T) {
	t.Parallel()

	err := scenario.ValidateAll([]scenario.Scenario{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a" defined more than once`)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := scenario.Load(strings.NewReader("- id: x\n  colour: red\n"), loadTime)
	assert.Error(t, err)
}

func TestScenario_Title(t *testing.T) {
	s := scenario.Scenario{ID: "lpb-pdf-clear", Name: "Clear PDF and re-upload"}
	assert.Equal(t, "@lpb-pdf-clear: Clear PDF and re-upload", s.Title())
	assert.False(t, s.IsJourney())
}

func ids(scenarios []scenario.Scenario) []string {
	out := make([]string, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ID
	}
	return out
}
