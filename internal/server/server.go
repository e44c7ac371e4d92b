package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/servopoint/servopoint/internal/config"
	"github.com/servopoint/servopoint/internal/deviceclient"
	"github.com/servopoint/servopoint/internal/model"
	"github.com/servopoint/servopoint/internal/pairing"
	"github.com/servopoint/servopoint/internal/presence"
	"github.com/servopoint/servopoint/internal/service"
	"github.com/servopoint/servopoint/internal/servostate"
	"github.com/servopoint/servopoint/internal/storage"
)

// Server wires HTTP handlers.
type Server struct {
	app         *fiber.App
	cfg         *config.Config
	tracker     *presence.Tracker
	servo       *servostate.Store
	coordinator *pairing.Coordinator
	authSvc     *service.AuthService
	activitySvc *service.ActivityService
	store       storage.Store
	device      *deviceclient.Client
}

// New builds a server instance.
func New(cfg *config.Config, tracker *presence.Tracker, servo *servostate.Store, coordinator *pairing.Coordinator, authSvc *service.AuthService, activitySvc *service.ActivityService, store storage.Store, device *deviceclient.Client) *Server {
	app := fiber.New(fiber.Config{
		IdleTimeout:  cfg.HTTP.ReadTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		AppName:      "servopoint",
	})
	s := &Server{
		app:         app,
		cfg:         cfg,
		tracker:     tracker,
		servo:       servo,
		coordinator: coordinator,
		authSvc:     authSvc,
		activitySvc: activitySvc,
		store:       store,
		device:      device,
	}
	s.registerRoutes()
	return s
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/register", s.handleRegister)
	s.app.Post("/login", s.handleLogin)

	// Device-facing endpoints
	s.app.Post("/get-pairing-code", s.handleAnnounce)
	s.app.Post("/heartbeat", s.handleHeartbeat)

	// Client-facing endpoints
	s.app.Post("/validate", s.handleValidate)
	s.app.Post("/servo", s.handleServoSet)
	s.app.Get("/servo", s.handleServoGet)
	s.app.Post("/unpair", s.handleUnpair)
	s.app.Post("/schedule", s.handleScheduleCreate)
	s.app.Get("/schedules", s.handleScheduleList)
	s.app.Get("/get-devices", s.handleGetDevices)
	s.app.Post("/wifi", s.handleWifi)

	s.app.Get("/activity", s.requireAuth, s.handleActivity)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	if err := s.authSvc.Register(s.requestCtx(c), req.Email, req.Password); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) || errors.Is(err, service.ErrMissingCredentials) {
			return c.Status(http.StatusBadRequest).JSON(model.ErrorWithDetails("Registration failed", err.Error()))
		}
		return c.Status(http.StatusInternalServerError).JSON(model.Error("Registration failed"))
	}
	return c.Status(http.StatusCreated).JSON(model.AckMessage("User registered successfully"))
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	token, err := s.authSvc.Login(s.requestCtx(c), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(http.StatusNotFound).JSON(model.Error("User not found"))
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.Status(http.StatusUnauthorized).JSON(model.Error("Invalid credentials"))
		case errors.Is(err, service.ErrMissingCredentials):
			return c.Status(http.StatusBadRequest).JSON(model.Error(err.Error()))
		default:
			return c.Status(http.StatusInternalServerError).JSON(model.Error("Login failed"))
		}
	}
	return c.JSON(fiber.Map{"token": token})
}

// handleAnnounce registers a device's pairing code. Always accepted; the
// device retries on its own cadence, so there is nothing useful to reject.
func (s *Server) handleAnnounce(c *fiber.Ctx) error {
	var req struct {
		PairCode string `json:"pair_code"`
	}
	if err := c.BodyParser(&req); err == nil {
		if code := strings.TrimSpace(req.PairCode); code != "" {
			s.tracker.Announce(code)
		}
	}
	return c.JSON(model.AckMessage("Pairing code received"))
}

func (s *Server) handleHeartbeat(c *fiber.Ctx) error {
	var req struct {
		PairCode string `json:"pair_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(model.AckMessage("Unknown pairing code"))
	}
	if !s.tracker.Heartbeat(strings.TrimSpace(req.PairCode)) {
		return c.JSON(model.AckMessage("Unknown pairing code"))
	}
	return c.JSON(model.AckMessage("Heartbeat received"))
}

func (s *Server) handleValidate(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		PairingCode string `json:"pairingCode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	if err := s.coordinator.ValidateAndPair(s.requestCtx(c), req.Email, req.PairingCode); err != nil {
		switch {
		case errors.Is(err, pairing.ErrMissingInput):
			return c.Status(http.StatusBadRequest).JSON(model.Error("Email and pairing code are required"))
		case errors.Is(err, pairing.ErrInvalidCode):
			return c.Status(http.StatusBadRequest).JSON(model.Error("Invalid pairing code"))
		default:
			return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to pair device"))
		}
	}
	return c.JSON(model.AckMessage("Device paired successfully"))
}

func (s *Server) handleServoSet(c *fiber.Ctx) error {
	var req struct {
		PairingCode string `json:"pairingCode"`
		State       string `json:"state"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	action, err := model.ParseAction(req.State)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("Invalid state"))
	}
	code := strings.TrimSpace(req.PairingCode)
	if code == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("Device ID (pairingCode) is required"))
	}
	s.servo.Set(code, action)
	return c.JSON(model.AckMessage(fmt.Sprintf("Servo on device %s set to %s", code, action)))
}

func (s *Server) handleServoGet(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("pairingCode"))
	if code == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("Device ID (pairingCode) is required"))
	}
	state, ok := s.servo.Get(code)
	if !ok {
		return c.Status(http.StatusNotFound).JSON(model.Error("Device not found"))
	}
	return c.JSON(fiber.Map{"state": state})
}

func (s *Server) handleUnpair(c *fiber.Ctx) error {
	var req struct {
		DeviceID string `json:"device_id"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	remaining, err := s.coordinator.Unpair(s.requestCtx(c), req.Email, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, pairing.ErrMissingInput):
			return c.Status(http.StatusBadRequest).JSON(model.Error("Both device ID and email are required"))
		case errors.Is(err, pairing.ErrNotPaired):
			return c.Status(http.StatusNotFound).JSON(model.Error("Device not found or already unpaired"))
		default:
			return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to unpair device"))
		}
	}
	return c.JSON(fiber.Map{
		"message":          "Device unpaired successfully",
		"remainingDevices": remaining,
	})
}

func (s *Server) handleScheduleCreate(c *fiber.Ctx) error {
	var req struct {
		PairingCode  string `json:"pairingCode"`
		ScheduleTime string `json:"scheduleTime"`
		Action       string `json:"action"`
		CreatedAt    string `json:"createdAt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	code := strings.TrimSpace(req.PairingCode)
	if code == "" || strings.TrimSpace(req.ScheduleTime) == "" || strings.TrimSpace(req.Action) == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("pairingCode, scheduleTime and action are required"))
	}
	action, err := model.ParseAction(req.Action)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("Invalid action"))
	}
	if _, err := time.Parse("15:04:05", req.ScheduleTime); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("scheduleTime must be HH:MM:SS"))
	}
	schedule := &model.Schedule{
		PairingCode:  code,
		ScheduleTime: req.ScheduleTime,
		Action:       action,
	}
	if req.CreatedAt != "" {
		if created, err := time.Parse(time.RFC3339, req.CreatedAt); err == nil {
			schedule.CreatedAt = created.UTC()
		}
	}
	if err := s.store.CreateSchedule(s.requestCtx(c), schedule); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to create schedule"))
	}
	return c.Status(http.StatusCreated).JSON(schedule)
}

func (s *Server) handleScheduleList(c *fiber.Ctx) error {
	schedules, err := s.store.ListSchedules(s.requestCtx(c))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to fetch schedules"))
	}
	if schedules == nil {
		schedules = []*model.Schedule{}
	}
	return c.JSON(schedules)
}

func (s *Server) handleGetDevices(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("Email is required"))
	}
	pairingRow, err := s.store.GetPairing(s.requestCtx(c), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON([]*model.Pairing{})
		}
		return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to fetch devices"))
	}
	return c.JSON([]*model.Pairing{pairingRow})
}

// handleWifi forwards Wi-Fi credentials to the device. Best effort, like
// every other outbound call to the device.
func (s *Server) handleWifi(c *fiber.Ctx) error {
	var req struct {
		PairingCode string `json:"pairingCode"`
		SSID        string `json:"ssid"`
		Password    string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("invalid request body"))
	}
	if strings.TrimSpace(req.SSID) == "" {
		return c.Status(http.StatusBadRequest).JSON(model.Error("ssid is required"))
	}
	ctx := s.requestCtx(c)
	result, err := s.device.SendWifiCredentials(ctx, req.SSID, req.Password)
	status := model.ActivityStatusSuccess
	if err != nil {
		status = model.ActivityStatusFailed
		result = err.Error()
	}
	s.appendActivity(ctx, req.PairingCode, model.ActivityKindWifi, "", status, result)
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(model.Error("Failed to update Wi-Fi credentials"))
	}
	return c.JSON(model.AckMessage(result))
}

func (s *Server) handleActivity(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "10"))
	filter := model.ActivityFilter{
		PairingCode: c.Query("pairingCode"),
		Status:      c.Query("status"),
		Page:        page,
		PageSize:    pageSize,
	}
	result, err := s.activitySvc.Query(s.requestCtx(c), filter)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(model.Error("Failed to fetch activity"))
	}
	return c.JSON(result)
}

func (s *Server) appendActivity(ctx context.Context, code, kind string, action model.Action, status, result string) {
	entry := &model.ActivityLog{
		PairingCode: strings.TrimSpace(code),
		Kind:        kind,
		Action:      action,
		Status:      status,
		Result:      result,
	}
	// Activity is observability, not control flow; a failed append is not
	// surfaced to the caller.
	_ = s.store.AppendActivity(ctx, entry)
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	token := extractBearerToken(c.Get("Authorization"))
	if token == "" {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("Authorization required"))
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error("Invalid or expired token"))
	}
	c.Locals("email", claims.Email)
	return c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requestCtx is the context store and device calls run under; outbound
// timeouts are enforced by the device client itself.
func (s *Server) requestCtx(c *fiber.Ctx) context.Context {
	return c.UserContext()
}
