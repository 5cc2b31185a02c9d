package instruction

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
	instruction_builder "github.com/code-payments/code-instruction-server/pkg/code/instruction"
	"github.com/code-payments/code-instruction-server/pkg/metrics"
)

const (
	rootPath          = "/"
	keypairPath       = "/keypair"
	createTokenPath   = "/token/create"
	mintTokenPath     = "/token/mint"
	signMessagePath   = "/message/sign"
	verifyMessagePath = "/message/verify"
	sendSolPath       = "/send/sol"
	sendTokenPath     = "/send/token"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
	textContentTypeHeaderValue = "text/plain; charset=utf-8"
	requestIdHeaderName        = "X-Request-Id"

	metricsStructName     = "instruction.server"
	customMetricPrefix    = "Custom/instruction_server"
	buildFailureEventName = "InstructionBuildFailure"
)

var errHttpPostExpected = errors.New("http post expected")

// operation produces the data of a successful response, or the error to
// report in the failure envelope.
type operation func(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error)

type Server struct {
	log  *logrus.Entry
	conf *conf
}

func NewInstructionServer(configProvider ConfigProvider) *Server {
	return &Server{
		log:  logrus.StandardLogger().WithField("type", "instruction/server"),
		conf: configProvider(),
	}
}

func (s *Server) postHandler(path string, op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := r.Context()

		requestId := uuid.New().String()
		log := s.log.WithContext(ctx).WithFields(logrus.Fields{
			"path":       path,
			"request_id": requestId,
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return s.failureStatusCode(ctx, http.StatusMethodNotAllowed), NewFailureResponseBody(errHttpPostExpected)
			}

			data, err := op(ctx, w, r)
			if err != nil {
				if isValidationError(err) {
					log.WithError(err).Debug("invalid request")
				} else {
					log.WithError(err).Warn("failure handling request")
					metrics.RecordEvent(ctx, buildFailureEventName, map[string]interface{}{
						"route":      path,
						"request_id": requestId,
						"error":      err.Error(),
					})
				}
				return s.failureStatusCode(ctx, httpStatusForError(err)), NewFailureResponseBody(err)
			}

			return http.StatusOK, NewSuccessResponseBody(data)
		}()

		outcome := metrics.OutcomeSuccess
		if !body.IsSuccess() {
			outcome = metrics.OutcomeFailure
		}
		elapsed := time.Since(start)
		metrics.ObserveRequest(path, outcome, elapsed)
		metrics.RecordCount(ctx, customMetricPrefix+path+"/"+outcome, 1)
		metrics.RecordDuration(ctx, customMetricPrefix+path+"/latency", elapsed)

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.Header().Set(requestIdHeaderName, requestId)
		w.WriteHeader(statusCode)
		if _, err := w.Write(body.ToBytes()); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func (s *Server) failureStatusCode(ctx context.Context, statusCode int) int {
	if s.conf.useHttpErrorStatus.Get(ctx) {
		return statusCode
	}
	return http.StatusOK
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != rootPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "http get expected", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set(contentTypeHeaderName, textContentTypeHeaderValue)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("Hello World")); err != nil {
		s.log.WithField("path", rootPath).WithError(err).Warn("failed to write body")
	}
}

func (s *Server) generateKeypair(ctx context.Context, _ http.ResponseWriter, _ *http.Request) (any, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "generateKeypair")
	defer tracer.End()

	account, err := common.NewRandomAccount()
	if err != nil {
		// The system entropy source is unusable, so nothing else is safe to do
		s.log.WithError(err).Fatal("failure generating keypair")
	}

	return newKeypairData(account), nil
}

func (s *Server) createToken(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req createTokenRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "createToken")
	defer tracer.End()

	ixn, err := instruction_builder.NewInitializeMintInstruction(args.mint, args.mintAuthority, args.decimals)
	if err != nil {
		tracer.OnError(err)
		return nil, newBuildFailure(err)
	}

	return newInstructionData(ixn), nil
}

func (s *Server) mintToken(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req mintTokenRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "mintToken")
	defer tracer.End()

	ixn, err := instruction_builder.NewMintToInstruction(args.mint, args.destination, args.authority, args.amount)
	if err != nil {
		tracer.OnError(err)
		return nil, newBuildFailure(err)
	}

	return newInstructionData(ixn), nil
}

func (s *Server) signMessage(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req signMessageRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "signMessage")
	defer tracer.End()

	signature, err := args.signer.Sign(args.message)
	if err != nil {
		tracer.OnError(err)
		return nil, newBuildFailure(err)
	}

	return &signMessageData{
		Signature: signature.ToBase64(),
		PublicKey: args.signer.PublicKey().ToBase58(),
		Message:   string(args.message),
	}, nil
}

func (s *Server) verifyMessage(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req verifyMessageRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "verifyMessage")
	defer tracer.End()

	valid := args.verifier.Verify(args.message, args.signature)
	tracer.AddAttribute("valid", valid)

	return &verifyMessageData{
		Valid:   valid,
		Message: string(args.message),
		Pubkey:  args.verifier.PublicKey().ToBase58(),
	}, nil
}

func (s *Server) sendSol(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req sendSolRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "sendSol")
	defer tracer.End()

	ixn, err := instruction_builder.NewSolTransferInstruction(args.from, args.to, args.lamports)
	if err != nil {
		tracer.OnError(err)
		return nil, newBuildFailure(err)
	}

	return newSolTransferData(ixn), nil
}

func (s *Server) sendToken(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error) {
	var req sendTokenRequest
	if err := decodeRequestBody(w, r, s.conf.maxRequestBodyBytes.Get(ctx), &req); err != nil {
		return nil, err
	}

	args, err := req.validate()
	if err != nil {
		return nil, err
	}

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "sendToken")
	defer tracer.End()

	ixn, err := instruction_builder.NewTokenTransferInstruction(args.destination, args.mint, args.owner, args.amount)
	if err != nil {
		tracer.OnError(err)
		return nil, newBuildFailure(err)
	}

	return newTokenTransferData(ixn), nil
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		rootPath:          s.rootHandler,
		keypairPath:       s.postHandler(keypairPath, s.generateKeypair),
		createTokenPath:   s.postHandler(createTokenPath, s.createToken),
		mintTokenPath:     s.postHandler(mintTokenPath, s.mintToken),
		signMessagePath:   s.postHandler(signMessagePath, s.signMessage),
		verifyMessagePath: s.postHandler(verifyMessagePath, s.verifyMessage),
		sendSolPath:       s.postHandler(sendSolPath, s.sendSol),
		sendTokenPath:     s.postHandler(sendTokenPath, s.sendToken),
	}
}
