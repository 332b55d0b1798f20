package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"SESSION_BUSY"`
	Message string `json:"message" example:"Camera session is in use by another flow"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
	Backend string `json:"backend,omitempty" example:"ok"`
}

// ActivityEntry is one recognition event as shown on the dashboard.
type ActivityEntry struct {
	ID          int64   `json:"id" example:"42"`
	Name        string  `json:"name" example:"Ana"`
	Timestamp   string  `json:"timestamp" example:"2026-03-14T07:30:00+07:00"`
	Status      string  `json:"status" example:"MASUK"`
	Category    string  `json:"category" example:"PENGHUNI"`
	Confidence  float64 `json:"confidence,omitempty" example:"0.93"`
	SnapshotURL string  `json:"snapshot_url,omitempty" example:"http://localhost:5000/api/snapshots/42.jpg"`
}

type EnrollmentOutcome struct {
	RunID       string `json:"run_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string `json:"name" example:"Ana"`
	FaceCount   int    `json:"face_count" example:"480"`
	Trained     bool   `json:"trained" example:"true"`
	FailedBatch int    `json:"failed_batch,omitempty" example:"0"`
	Message     string `json:"message" example:"Berhasil menyimpan 480 wajah untuk Ana"`
}

// PipelineStatus is the point-in-time view of camera and tasks.
type PipelineStatus struct {
	Mode           string             `json:"mode" example:"recognition"`
	Camera         string             `json:"camera" example:"active"`
	Placeholder    string             `json:"placeholder,omitempty" example:""`
	Recognition    bool               `json:"recognition" example:"true"`
	FramesSent     int64              `json:"frames_sent" example:"128"`
	Enrollment     string             `json:"enrollment" example:"idle"`
	Captured       int                `json:"captured" example:"0"`
	Target         int                `json:"target" example:"500"`
	LastEnrollment *EnrollmentOutcome `json:"last_enrollment,omitempty"`
	Latest         []ActivityEntry    `json:"latest_activity"`
}

type StartEnrollmentRequest struct {
	Name       string `json:"name" example:"Ana"`
	ResidentID int64  `json:"resident_id,omitempty" example:"7"`
}

type EnrollmentResponse struct {
	Started   bool `json:"started,omitempty" example:"true"`
	Cancelled bool `json:"cancelled,omitempty" example:"false"`
}

type Resident struct {
	ID        int64  `json:"id" example:"7"`
	Name      string `json:"name" example:"Ana"`
	Role      string `json:"role" example:"Penghuni"`
	FaceCount int    `json:"face_count" example:"480"`
}

type ResidentInput struct {
	Name      string `json:"name" example:"Ana"`
	Role      string `json:"role" example:"Penghuni"`
	FaceCount int    `json:"face_count" example:"0"`
}

type DatasetStatus struct {
	Exists    bool `json:"exists" example:"true"`
	FaceCount int  `json:"face_count" example:"480"`
}

var (
	errBadRequest  = response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request")
	errRateLimited = response.New(ErrorResponse{Code: "RATE_LIMITED", Message: "Too many control requests"}, "429", "Too Many Requests")
	errBusy        = response.New(ErrorResponse{Code: "SESSION_BUSY", Message: "Camera session is in use by another flow"}, "409", "Conflict")
	errBackend     = response.New(ErrorResponse{Code: "TRANSIENT_NETWORK_ERROR", Message: "Backend belum siap"}, "502", "Bad Gateway")
	errInternal    = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
)

func displayParams() []*parameter.Parameter {
	return []*parameter.Parameter{
		parameter.IntParam("w", parameter.Query, parameter.WithDescription("Displayed width in CSS pixels")),
		parameter.IntParam("h", parameter.Query, parameter.WithDescription("Displayed height in CSS pixels")),
		parameter.StrParam("dpr", parameter.Query, parameter.WithDescription("Device pixel ratio (decimal, up to 4)")),
	}
}

func residentIDParam() *parameter.Parameter {
	return parameter.IntParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Resident ID"))
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "HomeGuard Dashboard API",
		Version:     "v1.0.0",
		Description: "Camera control, live recognition overlay, resident enrollment and activity log for the home face-recognition gate",
		Host:        host,
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// Health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is up"),
			}),
		),
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Reports whether the recognition backend answers"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Backend reachable"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready"}, "503", "Backend unreachable"),
			}),
		),

		// Pipeline control
		endpoint.New(
			endpoint.GET,
			"/api/status",
			endpoint.WithTags("Pipeline"),
			endpoint.WithSummary("Current camera, recognition and enrollment state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PipelineStatus{}, "200", "Pipeline status"),
			}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/camera/start",
			endpoint.WithTags("Pipeline"),
			endpoint.WithSummary("Open the camera"),
			endpoint.WithDescription("Acquires the capture device. A camera that is already open is reused."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PipelineStatus{}, "200", "Camera open"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "PERMISSION_DENIED", Message: "Camera access denied"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "DEVICE_UNAVAILABLE", Message: "Camera device unavailable"}, "503", "Service Unavailable"),
				errRateLimited,
			}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/camera/stop",
			endpoint.WithTags("Pipeline"),
			endpoint.WithSummary("Release the camera"),
			endpoint.WithDescription("Stops recognition, abandons a recording in progress and releases the device. Refused while an enrollment is uploading."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PipelineStatus{}, "200", "Camera released"),
			}),
			endpoint.WithErrors([]response.Response{errBusy, errRateLimited}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/recognition/start",
			endpoint.WithTags("Pipeline"),
			endpoint.WithSummary("Start live recognition"),
			endpoint.WithDescription("Sends one downsampled frame per second to the backend and draws the verdict on the live stream"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PipelineStatus{}, "200", "Recognition running"),
			}),
			endpoint.WithErrors([]response.Response{errBusy, errRateLimited}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/recognition/stop",
			endpoint.WithTags("Pipeline"),
			endpoint.WithSummary("Stop live recognition"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PipelineStatus{}, "200", "Recognition stopped"),
			}),
		),

		// Enrollment
		endpoint.New(
			endpoint.POST,
			"/api/enrollment/start",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Record face samples for a resident"),
			endpoint.WithDescription("Captures samples at native resolution, then uploads them in batches, trains once and updates the resident. Progress and the result are pushed over /ws."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(StartEnrollmentRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollmentResponse{Started: true}, "202", "Recording started"),
				response.New(EnrollmentResponse{}, "200", "A recording is already running"),
			}),
			endpoint.WithErrors([]response.Response{
				errBadRequest,
				errBusy,
				response.New(ErrorResponse{Code: "PRECONDITION_FAILED", Message: "Kamera belum aktif. Silakan tunggu atau izinkan akses kamera."}, "412", "Precondition Failed"),
				errRateLimited,
			}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/enrollment/cancel",
			endpoint.WithTags("Enrollment"),
			endpoint.WithSummary("Abandon a recording"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollmentResponse{Cancelled: true}, "200", "Cancellation result"),
			}),
		),

		// Live view
		endpoint.New(
			endpoint.GET,
			"/stream.mjpeg",
			endpoint.WithTags("Live"),
			endpoint.WithSummary("Live camera stream with recognition overlay"),
			endpoint.WithParams(displayParams()...),
			endpoint.WithProduce([]mime.MIME{mime.MIME("multipart/x-mixed-replace")}),
		),
		endpoint.New(
			endpoint.GET,
			"/api/frame.jpg",
			endpoint.WithTags("Live"),
			endpoint.WithSummary("Single live frame with overlay"),
			endpoint.WithParams(displayParams()...),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/jpeg")}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "DEVICE_UNAVAILABLE", Message: "Camera not ready"}, "503", "Service Unavailable"),
			}),
		),

		// Residents
		endpoint.New(
			endpoint.GET,
			"/api/residents",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("List residents"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]Resident{}, "200", "Residents"),
			}),
			endpoint.WithErrors([]response.Response{errBackend}),
		),
		endpoint.New(
			endpoint.POST,
			"/api/residents",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Create a resident"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(ResidentInput{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Resident{}, "201", "Resident created"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),
		endpoint.New(
			endpoint.GET,
			"/api/residents/{id}",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Get a resident"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(residentIDParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Resident{}, "200", "Resident"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),
		endpoint.New(
			endpoint.PUT,
			"/api/residents/{id}",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Update a resident"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(residentIDParam()),
			endpoint.WithBody(ResidentInput{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Resident{}, "200", "Resident updated"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),
		endpoint.New(
			endpoint.DELETE,
			"/api/residents/{id}",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Delete a resident"),
			endpoint.WithParams(residentIDParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Resident deleted"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),
		endpoint.New(
			endpoint.GET,
			"/api/residents/{id}/dataset",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Check stored face samples"),
			endpoint.WithDescription("Never fails on backend errors; an unknown state reads as no samples"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(residentIDParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DatasetStatus{}, "200", "Dataset status"),
			}),
		),
		endpoint.New(
			endpoint.DELETE,
			"/api/residents/{id}/dataset",
			endpoint.WithTags("Residents"),
			endpoint.WithSummary("Delete stored face samples"),
			endpoint.WithDescription("Deletes the resident's samples on the backend and resets face_count to 0"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(residentIDParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(Resident{}, "200", "Dataset deleted"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),

		// Activity
		endpoint.New(
			endpoint.GET,
			"/api/activity/latest",
			endpoint.WithTags("Activity"),
			endpoint.WithSummary("Latest recognition events"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]ActivityEntry{}, "200", "Newest entries from the last refresh"),
			}),
		),
		endpoint.New(
			endpoint.GET,
			"/api/logs",
			endpoint.WithTags("Activity"),
			endpoint.WithSummary("Recognition log"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("Local calendar date (YYYY-MM-DD)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]ActivityEntry{}, "200", "Log entries"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend}),
		),
		endpoint.New(
			endpoint.GET,
			"/api/events/{id}",
			endpoint.WithTags("Activity"),
			endpoint.WithSummary("Event detail"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Event ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ActivityEntry{}, "200", "Event"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest, errBackend, errInternal}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
