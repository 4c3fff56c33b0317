package model_test

import (
	"context"
	"testing"
	"trainer/pkg/dataset"
	"trainer/pkg/model"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestArtifactRoundTripKeepsPredictions(t *testing.T) {
	t.Parallel()

	table := dataset.Table{
		housingRow(100, "INLAND"),
		housingRow(300, "NEAR BAY"),
		housingRow(500, "INLAND"),
		housingRow(700, "NEAR OCEAN"),
	}

	pre, err := model.FitPreprocessor(table, true)
	require.NoError(t, err)
	X, err := pre.Transform(table)
	require.NoError(t, err)
	y := table.Labels()

	params := model.Params{NumTrees: 5, MaxDepth: 3}
	forest, err := model.FitForest(context.Background(), X, y, params, 43)
	require.NoError(t, err)

	artifact, err := model.NewArtifact(model.KindForest, params, pre, forest)
	require.NoError(t, err)

	encoded, err := model.Encode(artifact)
	require.NoError(t, err)

	decoded, err := model.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, model.KindForest, decoded.Kind)
	require.NotNil(t, decoded.Preprocess.Scaler, "fitted scaler must survive the round trip")

	reg, err := decoded.Regressor()
	require.NoError(t, err)

	x, err := decoded.Preprocess.Features(housingRow(300, "NEAR BAY"))
	require.NoError(t, err)
	require.Equal(t, forest.Predict(X[1]), reg.Predict(x),
		"decoded model must predict exactly like the fitted one")
}

func TestDecodeRejectsBadArtifacts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "not json", in: "garbage"},
		{name: "wrong version", in: `{"version":99,"kind":"linear","preprocess":{"bedroomsMedian":1,"categories":[]}}`},
		{name: "missing preprocess", in: `{"version":1,"kind":"linear","linear":{"intercept":1,"coef":[1]}}`},
		{name: "kind/payload mismatch", in: `{"version":1,"kind":"forest","preprocess":{"bedroomsMedian":1,"categories":[]},"linear":{"intercept":1,"coef":[1]}}`},
		{name: "unknown kind", in: `{"version":1,"kind":"boost","preprocess":{"bedroomsMedian":1,"categories":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := model.Decode([]byte(tt.in))
			require.ErrorIs(t, err, serrors.ErrBadRequest)
		})
	}
}

func TestNewArtifactRejectsForeignRegressor(t *testing.T) {
	t.Parallel()

	pre := &model.Preprocessor{Categories: dataset.OceanCategories}
	_, err := model.NewArtifact(model.KindLinear, model.Params{}, pre, fakeRegressor{})
	require.Error(t, err)
}

type fakeRegressor struct{}

func (fakeRegressor) Predict([]float64) float64 { return 0 }
