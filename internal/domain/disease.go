package domain

// Canonical indicator names used by disease inference. Deployments that
// rename indicators in their registry lose the disease heuristic for the
// renamed signals but scoring is unaffected.
const (
	IndicatorContamination = "contamination"
	IndicatorSanitation    = "sanitation"
	IndicatorRainfall      = "rainfall"
	IndicatorDrainage      = "drainage"
	IndicatorTemperature   = "temperature"
	IndicatorPopulation    = "population"
)

// Disease labels produced by PredictDisease.
const (
	DiseaseCholera    = "Cholera"
	DiseaseTyphoid    = "Typhoid"
	DiseaseDiarrhea   = "Diarrhea"
	DiseaseHepatitisA = "Hepatitis A"
	DiseaseGeneral    = "Waterborne Disease Risk"
	DiseaseNone       = "Low Risk"
)

// PredictDisease names the most likely waterborne disease given the raw
// (unnormalized) indicator values for a region, checked in order of
// epidemiological severity. Contamination and sanitation are percentages,
// rainfall is mm, drainage is the 1–5 quality score. Missing indicators
// simply fail their threshold checks.
func PredictDisease(values map[string]float64) string {
	contamination := values[IndicatorContamination]
	sanitation, haveSanitation := values[IndicatorSanitation]
	rainfall := values[IndicatorRainfall]
	drainage := values[IndicatorDrainage]

	switch {
	case contamination > 80 && rainfall > 150:
		return DiseaseCholera
	case contamination > 70 && haveSanitation && sanitation < 40:
		return DiseaseTyphoid
	case contamination > 60:
		return DiseaseDiarrhea
	case rainfall > 180 && drainage >= 4:
		return DiseaseHepatitisA
	case contamination > 50 || rainfall > 120:
		return DiseaseGeneral
	default:
		return DiseaseNone
	}
}
