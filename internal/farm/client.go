package farm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// Client wraps the farm's authenticated REST surface. Beyond the HTTP
// transport it keeps only the current user's id, fetched once from
// /api/v2/me: the State Cache is the caller's memory, not the Client's.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	userID   int
	userIDOK bool
}

// NewClient builds a Client against baseURL, authenticating every request
// with apiKey. The transport is a pooled, non-keepalive-heavy client from
// go-cleanhttp — appropriate for the short-lived, bursty request pattern
// described in spec.md §5 ("no long-running connections to the farm are
// held").
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    cleanhttp.DefaultPooledClient(),
	}
}

type listResponse struct {
	Data json.RawMessage `json:"data"`
}

// do issues an authenticated request and decodes a JSON body into out
// (when out is non-nil). A non-2xx response is returned as an error
// carrying the status code and body, so callers can pattern-match on it
// (see IsFileEntityMissing).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("farm: marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("farm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("farm: decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func listQuery(filters []string) url.Values {
	q := url.Values{}
	q.Set("limit", "0")
	for _, f := range filters {
		q.Add("filter", f)
	}
	return q
}

func (c *Client) me(ctx context.Context) (int, error) {
	if c.userIDOK {
		return c.userID, nil
	}
	var me struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/me", nil, nil, &me); err != nil {
		return 0, err
	}
	c.userID, c.userIDOK = me.ID, true
	return c.userID, nil
}

// ListDevices returns devices matching filters, unconstrained by page size.
func (c *Client) ListDevices(ctx context.Context, filters ...Filter) ([]Device, error) {
	rendered, err := RenderFilter(DeviceFields, filters...)
	if err != nil {
		return nil, err
	}
	var devices []Device
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/devices", listQuery(rendered), nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &devices); err != nil {
		return nil, fmt.Errorf("farm: decode devices: %w", err)
	}
	return devices, nil
}

// ListDeviceProblems returns the admin device-problems board: every
// device currently carrying a reported problem (e.g. OFFLINE), unfiltered.
// The endpoint takes no field filters (original_source
// review_mozilla_bitbar_devicepool/devices.py get_device_problems posts
// only {"limit": 0}); callers narrow by device-name prefix themselves.
func (c *Client) ListDeviceProblems(ctx context.Context) ([]DeviceProblemReport, error) {
	q := url.Values{}
	q.Set("limit", "0")
	var reports []DeviceProblemReport
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/admin/device-problems", q, nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &reports); err != nil {
		return nil, fmt.Errorf("farm: decode device problems: %w", err)
	}
	return reports, nil
}

// OfflineDeviceNames returns the deviceModelName of every device-problems
// report whose device name starts with deviceModel and which carries an
// OFFLINE problem (original_source's get_offline_devices(device_model)).
// An empty deviceModel matches every device name except "Docker Builder",
// mirroring the original's no-prefix branch.
func (c *Client) OfflineDeviceNames(ctx context.Context, deviceModel string) ([]string, error) {
	reports, err := c.ListDeviceProblems(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, report := range reports {
		if deviceModel != "" {
			if !strings.HasPrefix(report.DeviceName, deviceModel) {
				continue
			}
		} else if report.DeviceName == "Docker Builder" {
			continue
		}
		for _, problem := range report.Problems {
			if problem.Type == string(ProblemOffline) {
				names = append(names, report.DeviceModelName)
				break
			}
		}
	}
	return names, nil
}

// ListDeviceGroups returns device groups matching filters.
func (c *Client) ListDeviceGroups(ctx context.Context, filters ...Filter) ([]DeviceGroup, error) {
	rendered, err := RenderFilter(DeviceGroupFields, filters...)
	if err != nil {
		return nil, err
	}
	var groups []DeviceGroup
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/device-groups", listQuery(rendered), nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &groups); err != nil {
		return nil, fmt.Errorf("farm: decode device groups: %w", err)
	}
	return groups, nil
}

// ListDeviceGroupDevices returns the current membership of a device group.
func (c *Client) ListDeviceGroupDevices(ctx context.Context, groupID int, filters ...Filter) ([]Device, error) {
	rendered, err := RenderFilter(DeviceFields, filters...)
	if err != nil {
		return nil, err
	}
	var devices []Device
	var raw listResponse
	path := fmt.Sprintf("/api/v2/device-groups/%d/devices", groupID)
	if err := c.do(ctx, http.MethodGet, path, listQuery(rendered), nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &devices); err != nil {
		return nil, fmt.Errorf("farm: decode device group devices: %w", err)
	}
	return devices, nil
}

// CreateDeviceGroup creates a device group for the current user.
func (c *Client) CreateDeviceGroup(ctx context.Context, displayName, osType string) (DeviceGroup, error) {
	userID, err := c.me(ctx)
	if err != nil {
		return DeviceGroup{}, err
	}
	payload := map[string]string{"displayName": displayName, "osType": osType}
	var group DeviceGroup
	path := fmt.Sprintf("/users/%d/device-groups", userID)
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &group); err != nil {
		return DeviceGroup{}, err
	}
	return group, nil
}

// AddDevicesToGroup adds deviceIDs to the group in one bulk request.
func (c *Client) AddDevicesToGroup(ctx context.Context, groupID int, deviceIDs []int) error {
	q := url.Values{}
	for _, id := range deviceIDs {
		q.Add("deviceIds[]", strconv.Itoa(id))
	}
	path := fmt.Sprintf("/device-groups/%d/devices", groupID)
	return c.do(ctx, http.MethodPost, path, q, nil, nil)
}

// RemoveDeviceFromGroup removes a single device from a group.
func (c *Client) RemoveDeviceFromGroup(ctx context.Context, groupID, deviceID int) error {
	path := fmt.Sprintf("/device-groups/%d/devices/%d", groupID, deviceID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// ListFrameworks returns frameworks matching filters.
func (c *Client) ListFrameworks(ctx context.Context, filters ...Filter) ([]Framework, error) {
	rendered, err := RenderFilter(FrameworkFields, filters...)
	if err != nil {
		return nil, err
	}
	var frameworks []Framework
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/admin/frameworks", listQuery(rendered), nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &frameworks); err != nil {
		return nil, fmt.Errorf("farm: decode frameworks: %w", err)
	}
	return frameworks, nil
}

// ListFiles returns files matching filters, ascending by create time
// (spec.md §4.1: "the files endpoint additionally requests
// ascending-by-create-time ordering").
func (c *Client) ListFiles(ctx context.Context, filters ...Filter) ([]File, error) {
	rendered, err := RenderFilter(FileFields, filters...)
	if err != nil {
		return nil, err
	}
	q := listQuery(rendered)
	q.Set("sort", "createTime_a")

	var files []File
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/files", q, nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &files); err != nil {
		return nil, fmt.Errorf("farm: decode files: %w", err)
	}
	return files, nil
}

// uploadFile multipart-POSTs localPath to urlPath on the farm. It returns
// only an error; callers re-list files to find the created record.
func (c *Client) uploadFile(ctx context.Context, urlPath, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("farm: open %s: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return fmt.Errorf("farm: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("farm: read %s: %w", localPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("farm: close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+urlPath, &buf)
	if err != nil {
		return fmt.Errorf("farm: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "upload " + urlPath, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// UploadTestFile uploads localPath as a test file bound to projectID.
func (c *Client) UploadTestFile(ctx context.Context, projectID int, localPath string) error {
	path := fmt.Sprintf("/projects/%d/files/test", projectID)
	return c.uploadFile(ctx, path, localPath)
}

// UploadApplicationFile uploads localPath as an application file bound to projectID.
func (c *Client) UploadApplicationFile(ctx context.Context, projectID int, localPath string) error {
	path := fmt.Sprintf("/projects/%d/files/application", projectID)
	return c.uploadFile(ctx, path, localPath)
}

// ListProjects returns non-archived projects matching filters (spec.md
// §4.1: "filters out records with a non-null archive timestamp").
func (c *Client) ListProjects(ctx context.Context, filters ...Filter) ([]Project, error) {
	rendered, err := RenderFilter(ProjectFields, filters...)
	if err != nil {
		return nil, err
	}
	var projects []Project
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/projects", listQuery(rendered), nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &projects); err != nil {
		return nil, fmt.Errorf("farm: decode projects: %w", err)
	}

	active := projects[:0]
	for _, p := range projects {
		if p.ArchiveTime == nil {
			active = append(active, p)
		}
	}
	return active, nil
}

// CreateProject creates a project for the current user.
func (c *Client) CreateProject(ctx context.Context, name, projectType string) (Project, error) {
	userID, err := c.me(ctx)
	if err != nil {
		return Project{}, err
	}
	payload := map[string]string{"name": name, "type": projectType}
	var project Project
	path := fmt.Sprintf("/users/%d/projects", userID)
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &project); err != nil {
		return Project{}, err
	}
	return project, nil
}

// UpdateProject updates the archiving and description properties of an
// existing project.
func (c *Client) UpdateProject(ctx context.Context, id int, name string, strategy ArchivingStrategy, itemCount int, description string) (Project, error) {
	userID, err := c.me(ctx)
	if err != nil {
		return Project{}, err
	}
	payload := map[string]interface{}{
		"name":               name,
		"archivingStrategy":  strategy,
		"archivingItemCount": itemCount,
		"description":        description,
	}
	var project Project
	path := fmt.Sprintf("/users/%d/projects/%d", userID, id)
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &project); err != nil {
		return Project{}, err
	}
	return project, nil
}

// ArchivingStrategy mirrors config.ArchivingStrategy without importing it,
// keeping internal/farm free of a dependency on internal/config.
type ArchivingStrategy = string

// SubmitRun creates a new test run (spec.md §4.5).
func (c *Client) SubmitRun(ctx context.Context, submission RunSubmission) (TestRun, error) {
	var run TestRun
	if err := c.do(ctx, http.MethodPost, "/runs", nil, submission, &run); err != nil {
		return TestRun{}, err
	}
	return run, nil
}

// ListActiveTestRuns returns every test run with no end time, across all
// projects — the accounting source for the active-runs reconciler
// (spec.md §4.6).
func (c *Client) ListActiveTestRuns(ctx context.Context) ([]TestRun, error) {
	q := url.Values{}
	q.Set("limit", "0")
	q.Add("filter", "d_endTime_isnull")

	var runs []TestRun
	var raw listResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/admin/runs", q, nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw.Data, &runs); err != nil {
		return nil, fmt.Errorf("farm: decode active runs: %w", err)
	}
	return runs, nil
}
