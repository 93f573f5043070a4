package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/quality"
)

func newValidator(t *testing.T, opts Options) *Validator {
	t.Helper()
	v, err := New(opts)
	require.NoError(t, err)
	return v
}

func TestInferCountry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rec      model.Record
		fallback string
		want     string
	}{
		{"explicit code", model.RecordFromStrings("country_code", "pe", "location", "Bogotá"), "", "PE"},
		{"two letter country", model.RecordFromStrings("country", "CL"), "", "CL"},
		{"unknown code ignored", model.RecordFromStrings("country_code", "US", "location", "Lima"), "", "PE"},
		{"phone prefix before location", model.RecordFromStrings("phone", "+55 11 91234-5678", "location", "Lima, Peru"), "", "BR"},
		{"country name", model.RecordFromStrings("location", "Mexico City, Mexico"), "", "MX"},
		{"accented country", model.RecordFromStrings("location", "Bogotá, Colombia"), "", "CO"},
		{"accented city", model.RecordFromStrings("location", "São Paulo"), "", "BR"},
		{"city alias", model.RecordFromStrings("address", "Av. Reforma 222, CDMX"), "", "MX"},
		{"country beats city", model.RecordFromStrings("location", "Santiago, República Dominicana"), "", "DO"},
		{"country field name", model.RecordFromStrings("country", "Perú"), "", "PE"},
		{"no word match inside words", model.RecordFromStrings("location", "Chilean Embassy"), "", ""},
		{"unknown place uses fallback", model.RecordFromStrings("location", "New York, USA"), "mx", "MX"},
		{"nothing", model.RecordFromStrings("location", "New York, USA"), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InferCountry(tt.rec, tt.fallback))
		})
	}
}

func TestValidateRecord_Valid(t *testing.T) {
	v := newValidator(t, Options{})
	rec := model.RecordFromStrings(
		"business_name", "Alpha Tech",
		"phone", "+52 55 8765 4321",
		"email", " Contacto@AlphaTech.mx ",
		"location", "Mexico City, Mexico",
	)

	res := v.ValidateRecord(rec)

	assert.True(t, res.EmailValid)
	assert.True(t, res.PhoneValid)
	require.NotNil(t, res.EmailFormatted)
	assert.Equal(t, "contacto@alphatech.mx", *res.EmailFormatted)
	require.NotNil(t, res.PhoneFormatted)
	assert.Equal(t, "+52 55 8765 4321", *res.PhoneFormatted)
	assert.Equal(t, "MX", res.Country)
	assert.Equal(t, 100, res.QualityScore)
	assert.Empty(t, res.Flags)
	assert.True(t, res.IsValid)
}

func TestValidateRecord_Invalid(t *testing.T) {
	v := newValidator(t, Options{})
	rec := model.RecordFromStrings(
		"business_name", "Test Company",
		"phone", "abcdefghij",
		"email", "notanemail",
		"location", "",
	)

	res := v.ValidateRecord(rec)

	assert.False(t, res.EmailValid)
	assert.False(t, res.PhoneValid)
	assert.Nil(t, res.EmailFormatted)
	assert.Nil(t, res.PhoneFormatted)
	assert.False(t, res.IsValid)
	assert.Equal(t, 50, res.QualityScore)
	assert.Equal(t, InvalidFormatReason, res.Flags["phone"])
	assert.Equal(t, InvalidFormatReason, res.Flags["email"])
	assert.Contains(t, res.Flags["business_name"], quality.ReasonPrefix)
}

// Scenario C.
func TestValidateRecord_UndetectablePhone(t *testing.T) {
	v := newValidator(t, Options{})
	rec := model.RecordFromStrings("business_name", "Cafe Sol", "phone", "1234567890")

	res := v.ValidateRecord(rec)

	assert.False(t, res.PhoneValid)
	assert.Equal(t, "", res.Country)
	assert.Equal(t, 38, res.QualityScore, "present-but-invalid phone scores half its weight")
	assert.Contains(t, res.Flags["phone"], InvalidFormatReason)
	assert.Contains(t, res.Flags["phone"], "sequential digits")
}

func TestValidateRecord_DefaultCountry(t *testing.T) {
	v := newValidator(t, Options{DefaultCountry: "MX"})
	res := v.ValidateRecord(model.RecordFromStrings("phone", "55 1234 5678"))

	assert.True(t, res.PhoneValid)
	require.NotNil(t, res.PhoneFormatted)
	assert.Equal(t, "+52 55 1234 5678", *res.PhoneFormatted)
}

func TestValidateRecord_Modes(t *testing.T) {
	rec := model.RecordFromStrings("business_name", "Cafe Sol", "email", "hola@cafesol.mx")

	both := newValidator(t, Options{Mode: ModeBoth}).ValidateRecord(rec)
	either := newValidator(t, Options{Mode: "Either"}).ValidateRecord(rec)

	assert.False(t, both.IsValid)
	assert.True(t, either.IsValid)
}

func TestNew_Errors(t *testing.T) {
	for _, opts := range []Options{
		{Mode: "any"},
		{Weights: quality.Weights{"email": -1}},
		{DefaultCountry: "US"},
	} {
		_, err := New(opts)
		var cfgErr *model.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	}
}

func TestAnnotate(t *testing.T) {
	v := newValidator(t, Options{})
	rec := model.RecordFromStrings("business_name", "Cafe Sol", "email", "test@mailinator.com", "source", "maps")

	ann := v.Annotate(rec)

	assert.Equal(t, []string{
		"business_name", "email", "source",
		FieldEmailValid, FieldPhoneValid, FieldEmailFormatted, FieldPhoneFormatted,
		FieldValidationScore, FieldValidationFlags, FieldIsValid,
	}, ann.Record.Names())
	assert.Equal(t, "true", ann.Record.Text(FieldEmailValid))
	assert.Equal(t, "false", ann.Record.Text(FieldPhoneValid))
	assert.Equal(t, "test@mailinator.com", ann.Record.Text(FieldEmailFormatted))
	phone, _ := ann.Record.Get(FieldPhoneFormatted)
	assert.True(t, phone.IsNull())
	assert.Equal(t, "50", ann.Record.Text(FieldValidationScore))
	assert.Contains(t, ann.Record.Text(FieldValidationFlags), "disposable domain mailinator.com")
	assert.Equal(t, "false", ann.Record.Text(FieldIsValid))

	assert.Equal(t, 3, rec.Len(), "input record is not modified")
}

// Scenario D.
func TestFilterByQualityScore(t *testing.T) {
	full := func(name string) model.Record {
		return model.RecordFromStrings("business_name", name, "email", "hola@negocio.mx", "phone", "+52 55 1234 5678", "location", "CDMX")
	}
	records := []model.Record{
		model.RecordFromStrings("business_name", "r0"),
		full("r1"),
		model.RecordFromStrings("business_name", "r2", "location", "Lima"),
		model.RecordFromStrings("business_name", "r3", "email", "bad"),
		full("r4"),
		model.RecordFromStrings("business_name", "r5", "phone", "12"),
		model.RecordFromStrings("business_name", "r6", "email", "ok@negocio.mx"),
		model.RecordFromStrings("location", "r7"),
		full("r8"),
		model.RecordFromStrings("business_name", "r9", "email", "ok@negocio.mx", "phone", "bad"),
	}

	anns := newValidator(t, Options{}).Process(records)
	require.Len(t, anns, 10)

	got := FilterByQualityScore(anns, 70)
	require.Len(t, got, 3)
	names := []string{got[0].Record.Text("business_name"), got[1].Record.Text("business_name"), got[2].Record.Text("business_name")}
	assert.Equal(t, []string{"r1", "r4", "r8"}, names)

	assert.Len(t, FilterByQualityScore(anns, 0), 10)
	assert.Empty(t, FilterByQualityScore(anns, 101))
}

func TestProcess_UsesCache(t *testing.T) {
	c := cache.New[Verdict](cache.Options{})
	v := newValidator(t, Options{Cache: c})
	records := []model.Record{
		model.RecordFromStrings("email", "a@sol.com", "phone", "+52 55 1234 5678"),
		model.RecordFromStrings("email", "a@sol.com", "phone", "+52 55 1234 5678"),
	}

	anns := v.Process(records)

	require.Len(t, anns, 2)
	assert.Equal(t, anns[0].Result, anns[1].Result)
	assert.Equal(t, int64(2), c.Stats().Hits)
	assert.Equal(t, 2, c.Len())
}

func TestObservations(t *testing.T) {
	v := newValidator(t, Options{})
	anns := v.Process([]model.Record{model.RecordFromStrings("email", "test@test.com")})

	obs := Observations(anns)
	require.Len(t, obs, 1)
	assert.True(t, obs[0].EmailValid)
	assert.True(t, obs[0].Flagged)
	assert.Equal(t, anns[0].Result.QualityScore, obs[0].Score)

	assert.Len(t, Records(anns), 1)
}
