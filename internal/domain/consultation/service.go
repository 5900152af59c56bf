package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrValidation           = errors.New("invalid consultation request")
)

type Service struct {
	consultations ConsultationRepository
	prescriptions PrescriptionRepository
}

func NewService(consultations ConsultationRepository, prescriptions PrescriptionRepository) *Service {
	return &Service{consultations: consultations, prescriptions: prescriptions}
}

func (s *Service) CreateConsultation(ctx context.Context, c *Consultation) error {
	if c.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if c.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return s.consultations.Create(ctx, c)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConsultationNotFound
	}
	return c, err
}

func (s *Service) UpdateConsultation(ctx context.Context, c *Consultation) error {
	if c.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return s.consultations.Update(ctx, c)
}

func (s *Service) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	return s.consultations.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.consultations.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.consultations.ListByDoctor(ctx, doctorID, limit, offset)
}

// AddPrescription attaches a prescription to an existing consultation.
func (s *Service) AddPrescription(ctx context.Context, p *Prescription) error {
	if p.ConsultationID == uuid.Nil {
		return fmt.Errorf("%w: consultation_id is required", ErrValidation)
	}
	if strings.TrimSpace(p.Medication) == "" {
		return fmt.Errorf("%w: medication is required", ErrValidation)
	}
	if _, err := s.GetConsultation(ctx, p.ConsultationID); err != nil {
		return err
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrescriptionNotFound
	}
	return p, err
}

func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, consultationID uuid.UUID) ([]*Prescription, error) {
	return s.prescriptions.ListByConsultation(ctx, consultationID)
}
