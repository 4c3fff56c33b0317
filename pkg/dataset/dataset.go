// Package dataset models the California housing table: its CSV schema,
// income-stratified train/test splitting, and fetching of the source archive.
package dataset

// Column names of the housing CSV, in header order.
const (
	ColLongitude        = "longitude"
	ColLatitude         = "latitude"
	ColHousingMedianAge = "housing_median_age"
	ColTotalRooms       = "total_rooms"
	ColTotalBedrooms    = "total_bedrooms"
	ColPopulation       = "population"
	ColHouseholds       = "households"
	ColMedianIncome     = "median_income"
	ColMedianHouseValue = "median_house_value"
	ColOceanProximity   = "ocean_proximity"
)

// Columns lists the ten CSV columns in header order.
var Columns = []string{
	ColLongitude,
	ColLatitude,
	ColHousingMedianAge,
	ColTotalRooms,
	ColTotalBedrooms,
	ColPopulation,
	ColHouseholds,
	ColMedianIncome,
	ColMedianHouseValue,
	ColOceanProximity,
}

// OceanCategories lists the known ocean_proximity values, in the order used
// for one-hot encoding.
var OceanCategories = []string{"<1H OCEAN", "INLAND", "ISLAND", "NEAR BAY", "NEAR OCEAN"}

// Row is a single housing record. TotalBedrooms is NaN when the source cell
// is empty; every other numeric column is always present in the real data.
type Row struct {
	Longitude        float64
	Latitude         float64
	HousingMedianAge float64
	TotalRooms       float64
	TotalBedrooms    float64
	Population       float64
	Households       float64
	MedianIncome     float64
	MedianHouseValue float64
	OceanProximity   string
}

// Table is an ordered set of housing rows.
type Table []Row

// Labels extracts the regression target (median_house_value) of every row.
func (t Table) Labels() []float64 {
	out := make([]float64, len(t))
	for i, r := range t {
		out[i] = r.MedianHouseValue
	}

	return out
}
