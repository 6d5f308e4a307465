package farm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProjects_FiltersOutArchived(t *testing.T) {
	archiveTime := int64(1700000000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(map[string]interface{}{
			"data": []Project{
				{ID: 1, Name: "live"},
				{ID: 2, Name: "archived", ArchiveTime: &archiveTime},
			},
		})
		w.Write(data)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "live", projects[0].Name)
}

func TestListActiveTestRuns_UsesEndTimeIsNullFilter(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.ListActiveTestRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d_endTime_isnull", gotFilter)
}

func TestDo_NonSuccessStatusIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.ListDevices(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
}

func TestIsFileEntityMissing_MatchesArchivedFilesCondition(t *testing.T) {
	err := &StatusError{StatusCode: 404, Body: `FileEntity with id 42 does not exist`}
	assert.True(t, IsFileEntityMissing(err))
}

func TestIsFileEntityMissing_OtherErrorsAreFalse(t *testing.T) {
	assert.False(t, IsFileEntityMissing(&StatusError{StatusCode: 404, Body: "project not found"}))
	assert.False(t, IsFileEntityMissing(&StatusError{StatusCode: 500, Body: "file entity does not exist"}))
	assert.False(t, IsFileEntityMissing(&TransportError{Op: "x", Err: assert.AnError}))
}

func TestOfflineDeviceNames_PrefixMatchesAndRequiresOfflineProblem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(map[string]interface{}{
			"data": []DeviceProblemReport{
				{DeviceName: "pixel2-001", DeviceModelName: "pixel2-001", Problems: []DeviceProblem{{Type: "OFFLINE"}}},
				{DeviceName: "pixel2-002", DeviceModelName: "pixel2-002", Problems: []DeviceProblem{{Type: "STORAGE_FULL"}}},
				{DeviceName: "s7-001", DeviceModelName: "s7-001", Problems: []DeviceProblem{{Type: "OFFLINE"}}},
			},
		})
		w.Write(data)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	names, err := c.OfflineDeviceNames(context.Background(), "pixel2")
	require.NoError(t, err)
	assert.Equal(t, []string{"pixel2-001"}, names)
}

func TestSubmitRun_SendsSubmissionBody(t *testing.T) {
	var got RunSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id": 99}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	sub := RunSubmission{
		FrameworkID:   1,
		ProjectID:     2,
		DeviceGroupID: 3,
		Files:         []RunFileRef{{ID: 4, Action: ActionRunTest}},
	}
	run, err := c.SubmitRun(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 99, run.ID)
	assert.Equal(t, 3, got.DeviceGroupID)
}
