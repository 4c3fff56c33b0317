package worker_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/mock/gomock"

	"trainer/internal/ingest"
	"trainer/internal/worker"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/logger"
	"trainer/pkg/metrics"
	"trainer/pkg/objstore"
	mockobjstore "trainer/pkg/objstore/mock"
	"trainer/pkg/storage"
	mockstorage "trainer/pkg/storage/mock"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func newPipeline(t *testing.T) *metrics.Pipeline {
	t.Helper()

	p, err := metrics.NewPipeline(noop.NewMeterProvider())
	require.NoError(t, err)

	return p
}

// fixtureTable builds n valid housing rows spread over several income strata
// and ocean categories.
func fixtureTable(n int) dataset.Table {
	cats := []string{"INLAND", "NEAR BAY", "<1H OCEAN"}
	table := make(dataset.Table, n)
	for i := range table {
		income := 1 + float64(i%7)
		table[i] = dataset.Row{
			Longitude:        -122 + float64(i)*0.01,
			Latitude:         37 + float64(i)*0.01,
			HousingMedianAge: float64(20 + i%30),
			TotalRooms:       float64(800 + 10*i),
			TotalBedrooms:    float64(120 + i),
			Population:       float64(300 + 5*i),
			Households:       float64(100 + i),
			MedianIncome:     income,
			MedianHouseValue: 50000 + 1000*float64(i) + 20000*income + 500*float64(i%5)*float64(i%3),
			OceanProximity:   cats[i%len(cats)],
		}
	}

	return table
}

// archiveServer serves the table as a housing.tgz download.
func archiveServer(t *testing.T, table dataset.Table) *httptest.Server {
	t.Helper()

	var csvBuf bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&csvBuf, table))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "housing.csv",
		Mode:     0o644,
		Size:     int64(csvBuf.Len()),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(csvBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	archive := buf.Bytes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func makeIngestJob(id int64, maxAttempts int, args ingest.JobArgs) *river.Job[ingest.JobArgs] {
	return &river.Job[ingest.JobArgs]{
		JobRow: &rivertype.JobRow{ID: id, MaxAttempts: maxAttempts},
		Args:   args,
	}
}

func TestIngestWorker_Work_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	table := fixtureTable(30)
	srv := archiveServer(t, table)

	userID := domain.UserID(uuid.New())
	datasetID := domain.DatasetID(uuid.New())
	ds := &domain.Dataset{
		ID:           datasetID,
		UserID:       userID,
		Name:         "housing",
		SourceURL:    srv.URL,
		TestFraction: 0.2,
		Seed:         43,
		Status:       domain.DatasetStatusPending,
	}

	st.EXPECT().DatasetByID(gomock.Any(), userID, datasetID).Return(ds, nil)

	trainKey := "datasets/" + datasetID.String() + "/train.csv"
	testKey := "datasets/" + datasetID.String() + "/test.csv"
	var trainCSV bytes.Buffer
	store.EXPECT().Put(gomock.Any(), trainKey, "text/csv", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key, _ string, r io.Reader, size int64) (objstore.ObjectInfo, error) {
			n, err := io.Copy(&trainCSV, r)
			require.NoError(t, err)
			require.Equal(t, size, n)

			return objstore.ObjectInfo{Key: key, Size: n}, nil
		})
	store.EXPECT().Put(gomock.Any(), testKey, "text/csv", gomock.Any(), gomock.Any()).
		Return(objstore.ObjectInfo{Key: testKey}, nil)

	st.EXPECT().UpdateDatasetByID(gomock.Any(), datasetID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.DatasetID, updates storage.DatasetUpdates) (*domain.Dataset, error) {
			require.Equal(t, domain.DatasetStatusCompleted, updates.Status)
			require.NotNil(t, updates.Rows)
			require.EqualValues(t, 30, *updates.Rows)
			require.NotNil(t, updates.TrainRows)
			require.NotNil(t, updates.TestRows)
			require.EqualValues(t, 30, *updates.TrainRows+*updates.TestRows)
			require.Equal(t, trainKey, *updates.TrainKey)
			require.Equal(t, testKey, *updates.TestKey)
			require.NotNil(t, updates.LastError)
			require.Empty(t, *updates.LastError)

			out := *ds
			out.Status = updates.Status

			return &out, nil
		})

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(srv.Client()), newPipeline(t))
	require.NoError(t, w.Work(context.Background(), makeIngestJob(1, 5, ingest.JobArgs{
		DatasetID: datasetID.String(),
		UserID:    userID.String(),
	})))

	// The stored train split must parse back as the housing schema.
	parsed, err := dataset.ReadCSV(bytes.NewReader(trainCSV.Bytes()))
	require.NoError(t, err)
	require.Len(t, parsed, 24, "30 rows at fraction 0.2 keep 24 for training")
}

func TestIngestWorker_Work_DatasetGoneCancels(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	userID := domain.UserID(uuid.New())
	datasetID := domain.DatasetID(uuid.New())
	st.EXPECT().DatasetByID(gomock.Any(), userID, datasetID).Return(nil, nil)

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(&http.Client{}), newPipeline(t))
	err := w.Work(context.Background(), makeIngestJob(2, 5, ingest.JobArgs{
		DatasetID: datasetID.String(),
		UserID:    userID.String(),
	}))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestIngestWorker_Work_AlreadyCompleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	userID := domain.UserID(uuid.New())
	datasetID := domain.DatasetID(uuid.New())
	st.EXPECT().DatasetByID(gomock.Any(), userID, datasetID).
		Return(&domain.Dataset{ID: datasetID, Status: domain.DatasetStatusCompleted}, nil)

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(&http.Client{}), newPipeline(t))
	require.NoError(t, w.Work(context.Background(), makeIngestJob(3, 5, ingest.JobArgs{
		DatasetID: datasetID.String(),
		UserID:    userID.String(),
	})))
}

func TestIngestWorker_Work_BadIDsCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(&http.Client{}), newPipeline(t))
	err := w.Work(context.Background(), makeIngestJob(4, 5, ingest.JobArgs{
		DatasetID: "not-a-uuid",
		UserID:    uuid.New().String(),
	}))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestIngestWorker_Work_DownloadFailureMarksRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	userID := domain.UserID(uuid.New())
	datasetID := domain.DatasetID(uuid.New())
	ds := &domain.Dataset{
		ID:           datasetID,
		UserID:       userID,
		SourceURL:    srv.URL,
		TestFraction: 0.2,
		Seed:         43,
		Status:       domain.DatasetStatusPending,
	}

	st.EXPECT().DatasetByID(gomock.Any(), userID, datasetID).Return(ds, nil)
	st.EXPECT().UpdateDatasetByID(gomock.Any(), datasetID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.DatasetID, updates storage.DatasetUpdates) (*domain.Dataset, error) {
			require.Equal(t, domain.DatasetStatusFailed, updates.Status)
			require.NotNil(t, updates.LastError)
			require.Contains(t, *updates.LastError, "could not fetch source table")
			require.Equal(t, 5, updates.MaxAttempts, "attempts guard must carry the job's budget")

			// Attempts not exhausted yet: the guard keeps the row pending.
			out := *ds

			return &out, nil
		})

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(srv.Client()), newPipeline(t))
	err := w.Work(context.Background(), makeIngestJob(5, 5, ingest.JobArgs{
		DatasetID: datasetID.String(),
		UserID:    userID.String(),
	}))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.NotErrorAs(t, err, &cancelErr, "a retryable failure must not cancel the job")
}

func TestIngestWorker_Work_DeletedDuringIngestionCancels(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	store := mockobjstore.NewMockStore(ctrl)

	table := fixtureTable(30)
	srv := archiveServer(t, table)

	userID := domain.UserID(uuid.New())
	datasetID := domain.DatasetID(uuid.New())
	ds := &domain.Dataset{
		ID:           datasetID,
		UserID:       userID,
		SourceURL:    srv.URL,
		TestFraction: 0.2,
		Seed:         43,
		Status:       domain.DatasetStatusPending,
	}

	st.EXPECT().DatasetByID(gomock.Any(), userID, datasetID).Return(ds, nil)
	store.EXPECT().Put(gomock.Any(), gomock.Any(), "text/csv", gomock.Any(), gomock.Any()).
		Return(objstore.ObjectInfo{}, nil).Times(2)
	st.EXPECT().UpdateDatasetByID(gomock.Any(), datasetID, gomock.Any()).Return(nil, nil)

	// The orphan splits must be cleaned up.
	store.EXPECT().Delete(gomock.Any(), "datasets/"+datasetID.String()+"/train.csv").Return(nil)
	store.EXPECT().Delete(gomock.Any(), "datasets/"+datasetID.String()+"/test.csv").Return(nil)

	w := worker.NewIngestWorker(st, store, dataset.NewFetcher(srv.Client()), newPipeline(t))
	err := w.Work(context.Background(), makeIngestJob(6, 5, ingest.JobArgs{
		DatasetID: datasetID.String(),
		UserID:    userID.String(),
	}))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}
