package model

import (
	"math"
	"slices"
	"sort"
	"trainer/pkg/dataset"
	"trainer/pkg/serrors"
)

// Preprocessor turns housing rows into feature vectors: missing
// total_bedrooms cells are imputed with the training median, three ratio
// features are derived, ocean_proximity is one-hot encoded, and features are
// optionally standardized. The fitted state is part of the model artifact so
// prediction inputs go through the exact same transformation.
type Preprocessor struct {
	// BedroomsMedian is the training median used to fill missing total_bedrooms.
	BedroomsMedian float64 `json:"bedroomsMedian"`
	// Categories is the one-hot category order for ocean_proximity.
	Categories []string `json:"categories"`
	// Scaler standardizes features when the run asked for normalization.
	Scaler *Scaler `json:"scaler,omitempty"`
}

// Scaler holds per-feature standardization parameters.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// numericFeatures is the count of feature columns before the one-hot block:
// eight raw numerics plus three derived ratios.
const numericFeatures = 11

// FeatureNames lists the produced feature columns in order.
func (p *Preprocessor) FeatureNames() []string {
	names := []string{
		dataset.ColLongitude,
		dataset.ColLatitude,
		dataset.ColHousingMedianAge,
		dataset.ColTotalRooms,
		dataset.ColTotalBedrooms,
		dataset.ColPopulation,
		dataset.ColHouseholds,
		dataset.ColMedianIncome,
		"rooms_per_household",
		"bedrooms_per_room",
		"population_per_household",
	}
	for _, cat := range p.Categories {
		names = append(names, "ocean_"+cat)
	}

	return names
}

// FitPreprocessor learns imputation and scaling state from the training
// table.
func FitPreprocessor(table dataset.Table, normalize bool) (*Preprocessor, error) {
	if len(table) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "cannot fit preprocessing on an empty table")
	}

	p := &Preprocessor{
		BedroomsMedian: bedroomsMedian(table),
		Categories:     slices.Clone(dataset.OceanCategories),
	}

	if normalize {
		X, err := p.transformRaw(table)
		if err != nil {
			return nil, err
		}
		p.Scaler = fitScaler(X)
	}

	return p, nil
}

// Transform converts a table into the feature matrix.
func (p *Preprocessor) Transform(table dataset.Table) ([][]float64, error) {
	X, err := p.transformRaw(table)
	if err != nil {
		return nil, err
	}
	if p.Scaler != nil {
		p.Scaler.apply(X)
	}

	return X, nil
}

// Features converts a single row, used by the prediction path.
func (p *Preprocessor) Features(row dataset.Row) ([]float64, error) {
	X, err := p.Transform(dataset.Table{row})
	if err != nil {
		return nil, err
	}

	return X[0], nil
}

func (p *Preprocessor) transformRaw(table dataset.Table) ([][]float64, error) {
	X := make([][]float64, len(table))
	for i, row := range table {
		bedrooms := row.TotalBedrooms
		if math.IsNaN(bedrooms) {
			bedrooms = p.BedroomsMedian
		}

		catIdx := slices.Index(p.Categories, row.OceanProximity)
		if catIdx < 0 {
			return nil, serrors.With(serrors.ErrBadRequest,
				"unknown ocean_proximity %q in row %d", row.OceanProximity, i)
		}
		if row.Households == 0 || row.TotalRooms == 0 {
			return nil, serrors.With(serrors.ErrBadRequest,
				"row %d has zero households or rooms", i)
		}

		features := make([]float64, numericFeatures+len(p.Categories))
		features[0] = row.Longitude
		features[1] = row.Latitude
		features[2] = row.HousingMedianAge
		features[3] = row.TotalRooms
		features[4] = bedrooms
		features[5] = row.Population
		features[6] = row.Households
		features[7] = row.MedianIncome
		features[8] = row.TotalRooms / row.Households
		features[9] = bedrooms / row.TotalRooms
		features[10] = row.Population / row.Households
		features[numericFeatures+catIdx] = 1

		X[i] = features
	}

	return X, nil
}

func bedroomsMedian(table dataset.Table) float64 {
	values := make([]float64, 0, len(table))
	for _, row := range table {
		if !math.IsNaN(row.TotalBedrooms) {
			values = append(values, row.TotalBedrooms)
		}
	}
	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}

	return (values[mid-1] + values[mid]) / 2
}

func fitScaler(X [][]float64) *Scaler {
	width := len(X[0])
	mean := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(X))
	}

	std := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(X)))
		// Constant columns stay untouched instead of dividing by zero.
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return &Scaler{Mean: mean, Std: std}
}

func (s *Scaler) apply(X [][]float64) {
	for _, row := range X {
		for j := range row {
			row[j] = (row[j] - s.Mean[j]) / s.Std[j]
		}
	}
}
