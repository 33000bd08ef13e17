// Package tables holds the WMO GRIB2 code tables the decoder refers to by
// number. Every lookup is a pure function; unknown codes produce a readable
// "unknown" descriptor instead of an error.
package tables

import "fmt"

// Parameter describes one entry of Code Table 4.2.
type Parameter struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	Units        string `json:"units"`
}

// Level describes one entry of Code Table 4.5.
type Level struct {
	Name  string `json:"name"`
	Units string `json:"units"`
}

type paramKey struct {
	discipline, category, number uint8
}

func unknown(code int) string {
	return fmt.Sprintf("unknown (%d)", code)
}

func lookup(m map[int]string, code int) string {
	if s, ok := m[code]; ok {
		return s
	}
	return unknown(code)
}

// Code Table 0.0
var disciplines = map[int]string{
	0:  "Meteorological products",
	1:  "Hydrological products",
	2:  "Land surface products",
	3:  "Satellite remote sensing products",
	4:  "Space weather products",
	10: "Oceanographic products",
	20: "Health and socioeconomic impacts",
}

// Discipline returns the name of a discipline code (Table 0.0).
func Discipline(code uint8) string { return lookup(disciplines, int(code)) }

// Common Code Table C-11, the centres most often met in practice.
var centers = map[int]string{
	7:  "US National Weather Service - NCEP",
	8:  "US National Weather Service - NWSTG",
	34: "Japanese Meteorological Agency - Tokyo",
	54: "Canadian Meteorological Service - Montreal",
	58: "US Navy - Fleet Numerical Oceanography Center",
	74: "UK Meteorological Office - Exeter",
	78: "Offenbach (DWD)",
	84: "Toulouse (Meteo-France)",
	85: "Toulouse (Meteo-France)",
	98: "European Centre for Medium-Range Weather Forecasts",
}

// Center returns the name of an originating centre.
func Center(code uint16) string { return lookup(centers, int(code)) }

// Code Table 1.2
var referenceSignificance = map[int]string{
	0: "Analysis",
	1: "Start of forecast",
	2: "Verifying time of forecast",
	3: "Observation time",
	4: "Local time",
}

// ReferenceSignificance describes the meaning of the reference time (Table 1.2).
func ReferenceSignificance(code uint8) string { return lookup(referenceSignificance, int(code)) }

// Code Table 1.3
var productionStatus = map[int]string{
	0: "Operational products",
	1: "Operational test products",
	2: "Research products",
	3: "Re-analysis products",
	4: "THORPEX Interactive Grand Global Ensemble",
	6: "S2S operational products",
	8: "Uncertainties in ensembles of regional re-analysis",
}

// ProductionStatus describes Table 1.3.
func ProductionStatus(code uint8) string { return lookup(productionStatus, int(code)) }

// Code Table 1.4
var dataTypes = map[int]string{
	0: "Analysis products",
	1: "Forecast products",
	2: "Analysis and forecast products",
	3: "Control forecast products",
	4: "Perturbed forecast products",
	5: "Control and perturbed forecast products",
	6: "Processed satellite observations",
	7: "Processed radar observations",
	8: "Event probability",
}

// DataType describes Table 1.4.
func DataType(code uint8) string { return lookup(dataTypes, int(code)) }

// Code Table 3.1
var gridTemplates = map[int]string{
	0:  "Latitude/longitude",
	1:  "Rotated latitude/longitude",
	2:  "Stretched latitude/longitude",
	3:  "Rotated and stretched latitude/longitude",
	10: "Mercator",
	20: "Polar stereographic",
	30: "Lambert conformal",
	31: "Albers equal area",
	40: "Gaussian latitude/longitude",
	41: "Rotated Gaussian latitude/longitude",
	50: "Spherical harmonic coefficients",
	90: "Space view perspective or orthographic",
}

// GridTemplate names a grid definition template (Table 3.1).
func GridTemplate(n uint16) string { return lookup(gridTemplates, int(n)) }

// Code Table 3.2
var earthShapes = map[int]string{
	0:  "Spherical, radius 6367470.0 m",
	1:  "Spherical, radius specified by data producer",
	2:  "Oblate spheroid, IAU 1965",
	3:  "Oblate spheroid, axes specified in km",
	4:  "Oblate spheroid, IAG-GRS80",
	5:  "WGS84",
	6:  "Spherical, radius 6371229.0 m",
	7:  "Oblate spheroid, axes specified in m",
	8:  "Spherical, radius 6371200 m, WGS84 datum",
	9:  "OSGB 1936 datum",
	10: "WGS84 corrected geomagnetic coordinates",
}

// EarthShape describes Table 3.2.
func EarthShape(code uint8) string { return lookup(earthShapes, int(code)) }

// Code Table 4.3
var generatingProcesses = map[int]string{
	0:  "Analysis",
	1:  "Initialization",
	2:  "Forecast",
	3:  "Bias corrected forecast",
	4:  "Ensemble forecast",
	5:  "Probability forecast",
	6:  "Forecast error",
	7:  "Analysis error",
	8:  "Observation",
	9:  "Climatological",
	10: "Probability-weighted forecast",
	11: "Bias-corrected ensemble forecast",
	12: "Post-processed analysis",
	13: "Post-processed forecast",
	14: "Nowcast",
	15: "Hindcast",
}

// GeneratingProcess describes Table 4.3.
func GeneratingProcess(code uint8) string { return lookup(generatingProcesses, int(code)) }

// Code Table 4.4
var timeUnits = map[int]string{
	0:  "Minute",
	1:  "Hour",
	2:  "Day",
	3:  "Month",
	4:  "Year",
	5:  "Decade",
	6:  "Normal (30 years)",
	7:  "Century",
	10: "3 hours",
	11: "6 hours",
	12: "12 hours",
	13: "Second",
}

// TimeUnit describes Table 4.4.
func TimeUnit(code uint8) string { return lookup(timeUnits, int(code)) }

// Code Table 4.6
var ensembleTypes = map[int]string{
	0: "Unperturbed high-resolution control forecast",
	1: "Unperturbed low-resolution control forecast",
	2: "Negatively perturbed forecast",
	3: "Positively perturbed forecast",
	4: "Multi-model forecast",
}

// EnsembleType describes Table 4.6.
func EnsembleType(code uint8) string { return lookup(ensembleTypes, int(code)) }

// Code Table 4.10
var statisticalProcesses = map[int]string{
	0:  "Average",
	1:  "Accumulation",
	2:  "Maximum",
	3:  "Minimum",
	4:  "Difference (end minus beginning)",
	5:  "Root mean square",
	6:  "Standard deviation",
	7:  "Covariance",
	8:  "Difference (beginning minus end)",
	9:  "Ratio",
	10: "Standardized anomaly",
	11: "Summation",
}

// StatisticalProcess describes Table 4.10.
func StatisticalProcess(code uint8) string { return lookup(statisticalProcesses, int(code)) }

// Code Table 5.0
var dataTemplates = map[int]string{
	0:     "Grid point data - simple packing",
	1:     "Matrix value at grid point - simple packing",
	2:     "Grid point data - complex packing",
	3:     "Grid point data - complex packing and spatial differencing",
	4:     "Grid point data - IEEE floating point data",
	40:    "Grid point data - JPEG 2000 code stream format",
	41:    "Grid point data - Portable Network Graphics (PNG)",
	42:    "Grid point data - CCSDS recommended lossless compression",
	50:    "Spectral data - simple packing",
	51:    "Spherical harmonics data - complex packing",
	61:    "Grid point data - simple packing with logarithm pre-processing",
	200:   "Run length packing with level values",
	40000: "Grid point data - JPEG 2000 (NCEP local)",
	40010: "Grid point data - PNG (NCEP local)",
}

// DataTemplate names a data representation template (Table 5.0).
func DataTemplate(n uint16) string { return lookup(dataTemplates, int(n)) }

// Code Table 4.5
var levels = map[int]Level{
	1:   {"Ground or water surface", ""},
	2:   {"Cloud base level", ""},
	3:   {"Level of cloud tops", ""},
	4:   {"Level of 0 °C isotherm", ""},
	5:   {"Level of adiabatic condensation lifted from the surface", ""},
	6:   {"Maximum wind level", ""},
	7:   {"Tropopause", ""},
	8:   {"Nominal top of the atmosphere", ""},
	9:   {"Sea bottom", ""},
	10:  {"Entire atmosphere", ""},
	11:  {"Cumulonimbus base", "m"},
	12:  {"Cumulonimbus top", "m"},
	20:  {"Isothermal level", "K"},
	100: {"Isobaric surface", "Pa"},
	101: {"Mean sea level", ""},
	102: {"Specific altitude above mean sea level", "m"},
	103: {"Specified height level above ground", "m"},
	104: {"Sigma level", ""},
	105: {"Hybrid level", ""},
	106: {"Depth below land surface", "m"},
	107: {"Isentropic (theta) level", "K"},
	108: {"Level at specified pressure difference from ground to level", "Pa"},
	109: {"Potential vorticity surface", "K m2 kg-1 s-1"},
	111: {"Eta level", ""},
	114: {"Snow level", ""},
	117: {"Mixed layer depth", "m"},
	150: {"Generalized vertical height coordinate", ""},
	151: {"Soil level", ""},
	160: {"Depth below sea level", "m"},
	161: {"Depth below water surface", "m"},
	200: {"Entire atmosphere (considered as a single layer)", ""},
	220: {"Planetary boundary layer", ""},
	244: {"Convective cloud layer", ""},
}

// LevelType describes a fixed surface type (Table 4.5).
func LevelType(code uint8) Level {
	if l, ok := levels[int(code)]; ok {
		return l
	}
	return Level{Name: unknown(int(code))}
}

// Code Table 4.2 (selected entries)
var parameters = map[paramKey]Parameter{
	// Discipline 0, category 0: temperature
	{0, 0, 0}:  {"TMP", "Temperature", "K"},
	{0, 0, 1}:  {"VTMP", "Virtual temperature", "K"},
	{0, 0, 2}:  {"POT", "Potential temperature", "K"},
	{0, 0, 3}:  {"EPOT", "Pseudo-adiabatic potential temperature", "K"},
	{0, 0, 4}:  {"TMAX", "Maximum temperature", "K"},
	{0, 0, 5}:  {"TMIN", "Minimum temperature", "K"},
	{0, 0, 6}:  {"DPT", "Dew point temperature", "K"},
	{0, 0, 7}:  {"DEPR", "Dew point depression", "K"},
	{0, 0, 8}:  {"LAPR", "Lapse rate", "K m-1"},
	{0, 0, 10}: {"LHTFL", "Latent heat net flux", "W m-2"},
	{0, 0, 11}: {"SHTFL", "Sensible heat net flux", "W m-2"},
	{0, 0, 17}: {"SKINT", "Skin temperature", "K"},
	{0, 0, 21}: {"APTMP", "Apparent temperature", "K"},
	// category 1: moisture
	{0, 1, 0}:  {"SPFH", "Specific humidity", "kg kg-1"},
	{0, 1, 1}:  {"RH", "Relative humidity", "%"},
	{0, 1, 2}:  {"MIXR", "Humidity mixing ratio", "kg kg-1"},
	{0, 1, 3}:  {"PWAT", "Precipitable water", "kg m-2"},
	{0, 1, 7}:  {"PRATE", "Precipitation rate", "kg m-2 s-1"},
	{0, 1, 8}:  {"APCP", "Total precipitation", "kg m-2"},
	{0, 1, 10}: {"ACPCP", "Convective precipitation", "kg m-2"},
	{0, 1, 11}: {"SNOD", "Snow depth", "m"},
	{0, 1, 13}: {"WEASD", "Water equivalent of accumulated snow depth", "kg m-2"},
	{0, 1, 22}: {"CLWMR", "Cloud mixing ratio", "kg kg-1"},
	{0, 1, 29}: {"ASNOW", "Total snowfall", "m"},
	{0, 1, 52}: {"TPRATE", "Total precipitation rate", "kg m-2 s-1"},
	// category 2: momentum
	{0, 2, 0}:  {"WDIR", "Wind direction (from which blowing)", "°"},
	{0, 2, 1}:  {"WIND", "Wind speed", "m s-1"},
	{0, 2, 2}:  {"UGRD", "U-component of wind", "m s-1"},
	{0, 2, 3}:  {"VGRD", "V-component of wind", "m s-1"},
	{0, 2, 8}:  {"VVEL", "Vertical velocity (pressure)", "Pa s-1"},
	{0, 2, 9}:  {"DZDT", "Vertical velocity (geometric)", "m s-1"},
	{0, 2, 10}: {"ABSV", "Absolute vorticity", "s-1"},
	{0, 2, 22}: {"GUST", "Wind speed (gust)", "m s-1"},
	// category 3: mass
	{0, 3, 0}:  {"PRES", "Pressure", "Pa"},
	{0, 3, 1}:  {"PRMSL", "Pressure reduced to MSL", "Pa"},
	{0, 3, 2}:  {"PTEND", "Pressure tendency", "Pa s-1"},
	{0, 3, 4}:  {"GP", "Geopotential", "m2 s-2"},
	{0, 3, 5}:  {"HGT", "Geopotential height", "gpm"},
	{0, 3, 6}:  {"DIST", "Geometric height", "m"},
	{0, 3, 18}: {"HPBL", "Planetary boundary layer height", "m"},
	{0, 3, 192}: {"MSLET", "MSLP (Eta model reduction)", "Pa"},
	// category 4: short-wave radiation
	{0, 4, 7}: {"DSWRF", "Downward short-wave radiation flux", "W m-2"},
	{0, 4, 8}: {"USWRF", "Upward short-wave radiation flux", "W m-2"},
	// category 5: long-wave radiation
	{0, 5, 3}: {"DLWRF", "Downward long-wave radiation flux", "W m-2"},
	{0, 5, 4}: {"ULWRF", "Upward long-wave radiation flux", "W m-2"},
	// category 6: cloud
	{0, 6, 1}: {"TCDC", "Total cloud cover", "%"},
	{0, 6, 3}: {"LCDC", "Low cloud cover", "%"},
	{0, 6, 4}: {"MCDC", "Medium cloud cover", "%"},
	{0, 6, 5}: {"HCDC", "High cloud cover", "%"},
	// category 7: thermodynamic stability
	{0, 7, 6}: {"CAPE", "Convective available potential energy", "J kg-1"},
	{0, 7, 7}: {"CIN", "Convective inhibition", "J kg-1"},
	{0, 7, 8}: {"HLCY", "Storm relative helicity", "m2 s-2"},
	// category 16: forecast radar imagery
	{0, 16, 196}: {"REFC", "Composite reflectivity", "dB"},
	// category 19: physical atmospheric properties
	{0, 19, 0}: {"VIS", "Visibility", "m"},
	{0, 19, 1}: {"ALBDO", "Albedo", "%"},
	// Discipline 2, category 0: vegetation/biomass
	{2, 0, 0}: {"LAND", "Land cover (1=land, 0=sea)", "Proportion"},
	{2, 0, 1}: {"SFCR", "Surface roughness", "m"},
	// category 3: soil products
	{2, 3, 18}: {"TSOIL", "Soil temperature", "K"},
	{2, 3, 20}: {"SOILM", "Soil moisture", "kg m-3"},
	// Discipline 10, category 0: waves
	{10, 0, 3}: {"HTSGW", "Significant height of combined wind waves and swell", "m"},
	{10, 0, 4}: {"WVDIR", "Direction of wind waves", "°"},
	{10, 0, 5}: {"WVHGT", "Significant height of wind waves", "m"},
	{10, 0, 6}: {"WVPER", "Mean period of wind waves", "s"},
	// category 2: ice
	{10, 2, 0}: {"ICEC", "Ice cover", "Proportion"},
	// category 3: surface properties
	{10, 3, 0}: {"WTMP", "Water temperature", "K"},
	{10, 3, 1}: {"DSLM", "Deviation of sea level from mean", "m"},
}

// LookupParameter returns the Table 4.2 entry for a parameter triple.
func LookupParameter(discipline, category, number uint8) (Parameter, bool) {
	p, ok := parameters[paramKey{discipline, category, number}]
	return p, ok
}

// ParameterName returns the Table 4.2 entry, or a placeholder naming the
// numeric triple when the entry is unknown.
func ParameterName(discipline, category, number uint8) Parameter {
	if p, ok := LookupParameter(discipline, category, number); ok {
		return p
	}
	return Parameter{
		Abbreviation: fmt.Sprintf("var%d_%d_%d", discipline, category, number),
		Name:         fmt.Sprintf("unknown (discipline %d, category %d, number %d)", discipline, category, number),
	}
}
