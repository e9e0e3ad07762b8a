// Package agronomyapi exposes crop recommendation, irrigation decisions and
// GDD tracking over gRPC.
package agronomyapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/suitability"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

type Recommender interface {
	Recommend(cond suitability.Conditions) (messages.CropRecommendation, error)
}

type Decider interface {
	Decide(ctx context.Context, field entities.FieldState, snap entities.SensorSnapshot) (messages.IrrigationDecision, error)
}

type Tracker interface {
	CalculateDailyRecord(ctx context.Context, fieldID string, date time.Time) (gdd.Calculation, error)
	RecalculateRange(ctx context.Context, fieldID string, start, end time.Time) (gdd.BatchResult, error)
	FillGapsAll(ctx context.Context, fieldIDs []string) ([]gdd.BatchResult, error)
}

type FieldRepository interface {
	Field(ctx context.Context, id string) (entities.FieldState, error)
}

// GrpcHandler implements AgronomyServer.
type GrpcHandler struct {
	scorer  Recommender
	engine  Decider
	tracker Tracker
	fields  FieldRepository
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewGrpcHandler(scorer Recommender, engine Decider, tracker Tracker, fields FieldRepository, log *zap.SugaredLogger) *GrpcHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GrpcHandler{scorer: scorer, engine: engine, tracker: tracker, fields: fields, log: log, now: time.Now}
}

var _ AgronomyServer = (*GrpcHandler)(nil)

// ============== requests ==============

type recommendRequest struct {
	FieldID        string   `json:"field_id"`
	VWC            float64  `json:"vwc"`
	SoilTemp       float64  `json:"soil_temp"`
	SoilTexture    string   `json:"soil_texture"`
	Date           string   `json:"date"`
	CurrentCrop    *string  `json:"current_crop"`
	AccumulatedGDD *float64 `json:"accumulated_gdd"`
}

type decideRequest struct {
	FieldID  string   `json:"field_id"`
	SensorID string   `json:"sensor_id"`
	VWC      float64  `json:"vwc"`
	SoilTemp float64  `json:"soil_temp"`
	AirTemp  *float64 `json:"air_temp"`
}

type gddRequest struct {
	FieldID string `json:"field_id"`
	Date    string `json:"date"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type fillGapsRequest struct {
	FieldIDs []string `json:"field_ids"`
}

type gddReply struct {
	FieldID string              `json:"field_id"`
	Outcome gdd.Outcome         `json:"outcome"`
	Record  *messages.GDDResult `json:"record,omitempty"`
}

// ============== RPCs ==============

func (h *GrpcHandler) Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req recommendRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	cond := suitability.Conditions{
		FieldID:     strings.TrimSpace(req.FieldID),
		VWC:         req.VWC,
		SoilTemp:    req.SoilTemp,
		SoilTexture: entities.SoilTexture(strings.ToLower(strings.TrimSpace(req.SoilTexture))),
	}
	if req.Date != "" {
		d, err := entities.ParseDay(req.Date)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "date %q: want YYYY-MM-DD", req.Date)
		}
		cond.Date = d
	}
	// a known field fills in what the caller left out
	if cond.FieldID != "" {
		f, err := h.fields.Field(ctx, cond.FieldID)
		if err != nil {
			return nil, h.toStatus("Recommend", err)
		}
		if cond.SoilTexture == "" {
			cond.SoilTexture = f.SoilTexture
		}
		cond.CurrentCrop = f.CropName
		cond.AccumulatedGDD = f.AccumulatedGDD
	}
	if req.CurrentCrop != nil {
		cond.CurrentCrop = *req.CurrentCrop
	}
	if req.AccumulatedGDD != nil {
		cond.AccumulatedGDD = *req.AccumulatedGDD
	}
	if cond.SoilTexture == "" {
		return nil, status.Error(codes.InvalidArgument, "soil_texture is required without a field_id")
	}

	rec, err := h.scorer.Recommend(cond)
	if err != nil {
		return nil, h.toStatus("Recommend", err)
	}
	return encode(rec)
}

func (h *GrpcHandler) Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req decideRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.FieldID) == "" {
		return nil, status.Error(codes.InvalidArgument, "field_id is required")
	}
	f, err := h.fields.Field(ctx, req.FieldID)
	if err != nil {
		return nil, h.toStatus("Decide", err)
	}
	snap := entities.SensorSnapshot{
		FieldID:  req.FieldID,
		SensorID: req.SensorID,
		VWC:      req.VWC,
		SoilTemp: req.SoilTemp,
		AirTemp:  req.AirTemp,
		TakenAt:  h.now().UTC(),
	}
	d, err := h.engine.Decide(ctx, f, snap)
	if err != nil {
		return nil, h.toStatus("Decide", err)
	}
	return encode(d)
}

func (h *GrpcHandler) CalculateGDD(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gddRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	date, err := parseDay("date", req.Date)
	if err != nil {
		return nil, err
	}
	c, err := h.tracker.CalculateDailyRecord(ctx, req.FieldID, date)
	if err != nil {
		return nil, h.toStatus("CalculateGDD", err)
	}
	out := gddReply{FieldID: req.FieldID, Outcome: c.Outcome}
	if c.Outcome != gdd.OutcomeBeforeSowing {
		r := messages.NewGDDResult(c.Record)
		out.Record = &r
	}
	return encode(out)
}

func (h *GrpcHandler) RecalculateGDD(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req gddRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	start, err := parseDay("start", req.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDay("end", req.End)
	if err != nil {
		return nil, err
	}
	res, err := h.tracker.RecalculateRange(ctx, req.FieldID, start, end)
	if err != nil {
		return nil, h.toStatus("RecalculateGDD", err)
	}
	return encode(res)
}

func (h *GrpcHandler) FillGaps(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req fillGapsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	results, err := h.tracker.FillGapsAll(ctx, req.FieldIDs)
	if err != nil {
		return nil, h.toStatus("FillGaps", err)
	}
	return encode(map[string]interface{}{"results": results})
}

// ============== helpers ==============

// toStatus maps operational errors onto client codes; anything else is Internal.
func (h *GrpcHandler) toStatus(rpc string, err error) error {
	switch {
	case apperr.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case apperr.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperr.ErrNoReading), errors.Is(err, apperr.ErrNoObservation):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	h.log.Errorw("api: internal error", "rpc", rpc, "err", err)
	return status.Error(codes.Internal, "internal error")
}

func parseDay(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	d, err := entities.ParseDay(v)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s %q: want YYYY-MM-DD", name, v)
	}
	return d, nil
}

func decode(in *structpb.Struct, v interface{}) error {
	b, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "request: %v", err)
	}
	return nil
}

func encode(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode reply: %v", err))
	}
	return s, nil
}
