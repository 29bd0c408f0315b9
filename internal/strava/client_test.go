package strava

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsarma/fitrelay/internal/activityfile"
	"github.com/gsarma/fitrelay/internal/upload"
)

func tcxFile(t *testing.T) *activityfile.File {
	t.Helper()
	f, err := activityfile.Classify([]byte(`<TrainingCenterDatabase/>`), "")
	require.NoError(t, err)
	return f
}

func TestSubmitUpload_SendsMultipartAndBearer(t *testing.T) {
	var gotAuth, gotDataType, gotName, gotType string
	var gotFileCompressed bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v3/uploads", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1 << 20))
		gotDataType = r.FormValue("data_type")
		gotName = r.FormValue("name")
		gotType = r.FormValue("activity_type")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		_, err = gzip.NewReader(file)
		gotFileCompressed = err == nil

		fmt.Fprint(w, `{"id": 16486788, "id_str": "16486788", "status": "Your activity is still being processed.", "error": null, "activity_id": null}`)
	}))
	defer srv.Close()

	c := New("tok-123", WithBaseURL(srv.URL))
	st, err := c.SubmitUpload(context.Background(), tcxFile(t), upload.Metadata{
		Title: "morning run", ActivityType: "run",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "tcx.gz", gotDataType)
	assert.Equal(t, "morning run", gotName)
	assert.Equal(t, "run", gotType)
	assert.True(t, gotFileCompressed, "payload must go out gzip-compressed")

	assert.Equal(t, "16486788", st.Handle)
	assert.Empty(t, st.Failure)
	assert.Zero(t, st.ActivityID)
}

func TestUploadStatus_MapsTerminalStates(t *testing.T) {
	cases := []struct {
		name string
		body string
		want upload.ProviderStatus
	}{
		{
			"processing",
			`{"id_str": "9", "status": "processing", "error": null, "activity_id": null}`,
			upload.ProviderStatus{Handle: "9"},
		},
		{
			"ready",
			`{"id_str": "9", "status": "Your activity is ready.", "error": null, "activity_id": 777}`,
			upload.ProviderStatus{Handle: "9", ActivityID: 777},
		},
		{
			"failed",
			`{"id_str": "9", "status": "There was an error processing your activity.", "error": "file.tcx.gz duplicate of activity 12345", "activity_id": null}`,
			upload.ProviderStatus{Handle: "9", Failure: "file.tcx.gz duplicate of activity 12345"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/v3/uploads/9", r.URL.Path)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			c := New("tok", WithBaseURL(srv.URL))
			st, err := c.UploadStatus(context.Background(), "9")
			require.NoError(t, err)
			assert.Equal(t, &tc.want, st)
		})
	}
}

func TestListActivities_WindowParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/athlete/activities", r.URL.Path)
		assert.Equal(t, "1717200000", r.URL.Query().Get("after"))
		assert.Equal(t, "1717286400", r.URL.Query().Get("before"))
		fmt.Fprint(w, `[{"id": 1, "name": "Morning Run", "type": "Run", "start_date": "2024-06-01T06:00:00Z", "distance": 5012.3}]`)
	}))
	defer srv.Close()

	c := New("tok", WithBaseURL(srv.URL))
	after := time.Unix(1717200000, 0)
	before := time.Unix(1717286400, 0)
	acts, err := c.ListActivities(context.Background(), after, before)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Morning Run", acts[0].Name)
	assert.EqualValues(t, 1, acts[0].ID)
	assert.Equal(t, 2024, acts[0].StartDate.Year())
}

func TestAPIError_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Authorization Error"}`)
	}))
	defer srv.Close()

	c := New("expired", WithBaseURL(srv.URL))
	err := c.CheckToken(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
