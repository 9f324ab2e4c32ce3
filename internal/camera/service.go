package camera

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

// knownModel is the one DVR model with a deterministic connectivity stub.
// Everything else gets a simulated probe; no real device protocol is spoken.
const knownModel = "LTS-8708"

// RepositoryPort abstracts camera persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, cam Camera) (Camera, error)
	Update(ctx context.Context, cam Camera) (Camera, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Camera, error)
	List(ctx context.Context) ([]Camera, error)
}

// Service manages camera configuration and the simulated connectivity test.
type Service struct {
	repo RepositoryPort
	rand func() float64
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, rand: rand.Float64}
}

// Create registers a camera.
func (s *Service) Create(ctx context.Context, cam Camera) (Camera, error) {
	if strings.TrimSpace(cam.Name) == "" || strings.TrimSpace(cam.Host) == "" {
		return Camera{}, errors.New("camera: name and host required")
	}
	if cam.Port <= 0 {
		cam.Port = 554
	}
	return s.repo.Insert(ctx, cam)
}

// Update replaces a camera's configuration.
func (s *Service) Update(ctx context.Context, cam Camera) (Camera, error) {
	if strings.TrimSpace(cam.Name) == "" || strings.TrimSpace(cam.Host) == "" {
		return Camera{}, errors.New("camera: name and host required")
	}
	return s.repo.Update(ctx, cam)
}

// Delete removes a camera configuration.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get loads one camera.
func (s *Service) Get(ctx context.Context, id int64) (Camera, error) {
	return s.repo.Get(ctx, id)
}

// List returns all configured cameras.
func (s *Service) List(ctx context.Context) ([]Camera, error) {
	return s.repo.List(ctx)
}

// TestConnectivity probes a camera. The known DVR model always reports
// online with a fixed latency; other models get a randomised simulation.
func (s *Service) TestConnectivity(ctx context.Context, id int64) (TestResult, error) {
	cam, err := s.repo.Get(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	if strings.EqualFold(cam.Model, knownModel) {
		return TestResult{CameraID: cam.ID, Online: true, LatencyMS: 42, Message: "DVR responded"}, nil
	}
	roll := s.rand()
	if roll < 0.8 {
		return TestResult{CameraID: cam.ID, Online: true, LatencyMS: 20 + int(roll*200), Message: "simulated: device reachable"}, nil
	}
	return TestResult{CameraID: cam.ID, Online: false, Message: "simulated: connection timed out"}, nil
}
