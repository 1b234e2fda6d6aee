package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
)

var (
	ErrInvalidInput       = errors.New("invalid inference input")
	ErrServingUnavailable = errors.New("model serving unavailable")
	ErrModelNotDeployed   = errors.New("model not deployed")
	ErrInferenceTimeout   = errors.New("inference timeout")
	ErrBackendClosed      = errors.New("model backend closed")
)

// ---------------------------------------------------------------------------
// ModelBackend
// ---------------------------------------------------------------------------

// ModelBackend invokes a served model. Implementations must be safe for
// concurrent use.
type ModelBackend interface {
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	Healthy(ctx context.Context) error
	Close() error
}

// BackendType identifies the serving protocol behind a ModelBackend.
type BackendType string

const (
	BackendKServe BackendType = "kserve"
	BackendMock   BackendType = "mock"
)

// ---------------------------------------------------------------------------
// Tensors
// ---------------------------------------------------------------------------

// Tensor datatypes as named by the KServe v2 protocol.
const (
	DatatypeINT64 = "INT64"
	DatatypeFP32  = "FP32"
	DatatypeFP64  = "FP64"
)

// Tensor is a named, shaped, flat-encoded tensor.
type Tensor struct {
	Name     string    `json:"name"`
	Datatype string    `json:"datatype"`
	Shape    []int64   `json:"shape"`
	Data     []float64 `json:"data"`
}

// Int64Tensor builds a [1, len(values)] INT64 tensor.
func Int64Tensor(name string, values []int64) Tensor {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return Tensor{Name: name, Datatype: DatatypeINT64, Shape: []int64{1, int64(len(values))}, Data: data}
}

// NumElements is the product of Shape.
func (t Tensor) NumElements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that Data agrees with Shape.
func (t Tensor) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: tensor name is required", ErrInvalidInput)
	}
	if int64(len(t.Data)) != t.NumElements() {
		return fmt.Errorf("%w: tensor %q has %d values for shape %v", ErrInvalidInput, t.Name, len(t.Data), t.Shape)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Predict types
// ---------------------------------------------------------------------------

// PredictRequest carries the named inputs for a single inference call.
type PredictRequest struct {
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version,omitempty"`
	Inputs       []Tensor          `json:"inputs"`
	OutputNames  []string          `json:"output_names,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (r *PredictRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidInput)
	}
	if r.ModelName == "" {
		return fmt.Errorf("%w: model_name is required", ErrInvalidInput)
	}
	if len(r.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input tensor is required", ErrInvalidInput)
	}
	for _, in := range r.Inputs {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PredictResponse carries the raw output tensors.
type PredictResponse struct {
	ModelName       string   `json:"model_name"`
	ModelVersion    string   `json:"model_version"`
	Outputs         []Tensor `json:"outputs"`
	InferenceTimeMs int64    `json:"inference_time_ms"`
}

// Output returns the output tensor with the given name.
func (r *PredictResponse) Output(name string) (Tensor, bool) {
	if r == nil {
		return Tensor{}, false
	}
	for _, o := range r.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Tensor{}, false
}

// ---------------------------------------------------------------------------
// Logger
// ---------------------------------------------------------------------------

// Logger is the narrow keys-and-values logger used inside the intelligence
// layer.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Error(string, ...interface{}) {}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }

// platformLogger adapts a logging.Logger to Logger.
type platformLogger struct {
	l logging.Logger
}

// NewLoggerAdapter bridges the platform logger into the intelligence layer.
func NewLoggerAdapter(l logging.Logger) Logger {
	if l == nil {
		return NewNoopLogger()
	}
	return &platformLogger{l: l}
}

func (p *platformLogger) Info(msg string, kv ...interface{})  { p.l.Info(msg, toFields(kv)...) }
func (p *platformLogger) Warn(msg string, kv ...interface{})  { p.l.Warn(msg, toFields(kv)...) }
func (p *platformLogger) Debug(msg string, kv ...interface{}) { p.l.Debug(msg, toFields(kv)...) }
func (p *platformLogger) Error(msg string, kv ...interface{}) { p.l.Error(msg, toFields(kv)...) }

// toFields pairs up keysAndValues. A dangling key is logged under "extra".
func toFields(kv []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			fields = append(fields, logging.Any("extra", key))
			break
		}
		if err, isErr := kv[i+1].(error); isErr && key == "error" {
			fields = append(fields, logging.Err(err))
			continue
		}
		fields = append(fields, logging.Any(key, kv[i+1]))
	}
	return fields
}

//Personal.AI order the ending
