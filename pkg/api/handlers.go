package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifacts"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/explorer"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/util/resiliency"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// AddressResponse describes the derived anchor address of an incident.
type AddressResponse struct {
	IncidentID  uint64 `json:"incident_id"`
	ProgramID   string `json:"program_id"`
	Address     string `json:"address"`
	Bump        uint8  `json:"bump"`
	ExplorerURL string `json:"explorer_url"`
	SolscanURL  string `json:"solscan_url"`
}

// AnchorResponse is a decoded record with its lifecycle state.
type AnchorResponse struct {
	Address     string                `json:"address"`
	Status      record.AnchorStatus   `json:"status"`
	Record      *record.OnChainRecord `json:"record"`
	ExplorerURL string                `json:"explorer_url"`
}

// PublishResponse is returned after a packet is stored.
type PublishResponse struct {
	PacketURI string                 `json:"packet_uri"`
	Hashes    *merkle.ArtifactHashes `json:"hashes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err)
			WriteError(w, r, http.StatusServiceUnavailable, ReasonLedgerUnavailable, "ledger endpoint is not reachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"program_id": s.verifier.ProgramID().String(),
		"cluster":    s.verifier.Cluster().Name,
	})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentParam(w, r)
	if !ok {
		return
	}
	addr, bump, err := pda.DeriveIncidentAnchor(s.verifier.ProgramID(), id)
	if err != nil {
		WriteInternal(w, r, err)
		return
	}
	cluster := s.verifier.Cluster()
	writeJSON(w, http.StatusOK, AddressResponse{
		IncidentID:  id,
		ProgramID:   s.verifier.ProgramID().String(),
		Address:     addr.String(),
		Bump:        bump,
		ExplorerURL: explorer.AddressURL(addr.String(), cluster),
		SolscanURL:  explorer.SolscanAddressURL(addr.String(), cluster),
	})
}

func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentParam(w, r)
	if !ok {
		return
	}
	rec, addr, err := s.verifier.FetchRecord(r.Context(), id)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		WriteError(w, r, http.StatusNotFound, ReasonNotAnchored, "incident "+strconv.FormatUint(id, 10)+" is not anchored")
		return
	}
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnchorResponse{
		Address:     addr.String(),
		Status:      record.StatusOf(rec),
		Record:      rec,
		ExplorerURL: explorer.AddressURL(addr.String(), s.verifier.Cluster()),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentParam(w, r)
	if !ok {
		return
	}
	a, ok := readArtifact(w, r)
	if !ok {
		return
	}
	res, err := s.verifier.Verify(r.Context(), id, a)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyPacket(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentParam(w, r)
	if !ok {
		return
	}
	res, err := s.verifier.VerifyFromPacket(r.Context(), id)
	switch {
	case errors.Is(err, verifier.ErrNoPacketStore):
		WriteError(w, r, http.StatusNotImplemented, ReasonPacketStore, "no packet store is configured")
	case errors.Is(err, verifier.ErrNoPacket):
		WriteError(w, r, http.StatusNotFound, ReasonNoPacket, err.Error())
	case errors.Is(err, artifact.ErrInvalidArtifact):
		WriteError(w, r, http.StatusUnprocessableEntity, ReasonInvalidArtifact, err.Error())
	case errors.Is(err, artifacts.ErrForbidden), errors.Is(err, artifacts.ErrUnsupportedScheme):
		WriteError(w, r, http.StatusForbidden, ReasonPacketStore, "packet location is not permitted")
	case errors.Is(err, artifacts.ErrNotFound):
		WriteError(w, r, http.StatusBadGateway, ReasonPacketStore, err.Error())
	case err != nil:
		s.writeLedgerError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	a, ok := readArtifact(w, r)
	if !ok {
		return
	}
	h, err := merkle.ComputeArtifactHashes(a)
	if err != nil {
		WriteError(w, r, http.StatusUnprocessableEntity, ReasonInvalidArtifact, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.packets == nil {
		WriteError(w, r, http.StatusNotImplemented, ReasonPacketStore, "no packet store is configured")
		return
	}
	a, ok := readArtifact(w, r)
	if !ok {
		return
	}
	h, err := merkle.ComputeArtifactHashes(a)
	if err != nil {
		WriteError(w, r, http.StatusUnprocessableEntity, ReasonInvalidArtifact, err.Error())
		return
	}
	canonical, err := a.MarshalJSON()
	if err != nil {
		WriteInternal(w, r, err)
		return
	}
	uri, err := artifacts.Publish(r.Context(), s.packets, canonical, record.MaxPacketURILen)
	if errors.Is(err, artifacts.ErrURITooLong) {
		WriteError(w, r, http.StatusUnprocessableEntity, ReasonPacketStore, "packet uri exceeds the record limit")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "packet store write failed", "error", err)
		WriteError(w, r, http.StatusBadGateway, ReasonPacketStore, "packet store write failed")
		return
	}
	writeJSON(w, http.StatusCreated, PublishResponse{PacketURI: uri, Hashes: h})
}

// writeLedgerError maps fetch and decode failures to HTTP responses.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var rpcErr *ledger.RPCError
	switch {
	case errors.Is(err, verifier.ErrCorruptRecord):
		s.logger.ErrorContext(r.Context(), "corrupt anchor record", "error", err)
		WriteError(w, r, http.StatusBadGateway, ReasonCorruptRecord, err.Error())
	case errors.Is(err, resiliency.ErrCircuitOpen):
		w.Header().Set("Retry-After", "10")
		WriteError(w, r, http.StatusServiceUnavailable, ReasonLedgerUnavailable, "ledger endpoint is failing; retry later")
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, r, http.StatusGatewayTimeout, ReasonLedgerUnavailable, "ledger request timed out")
	case errors.As(err, &rpcErr), errors.Is(err, ledger.ErrMalformedResponse):
		s.logger.WarnContext(r.Context(), "ledger request failed", "error", err)
		WriteError(w, r, http.StatusBadGateway, ReasonLedgerUnavailable, "ledger request failed")
	default:
		WriteInternal(w, r, err)
	}
}

func incidentParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ReasonInvalidIncident, "incident id must be an unsigned 64-bit integer")
		return 0, false
	}
	return id, true
}

func readArtifact(w http.ResponseWriter, r *http.Request) (*artifact.DecisionArtifact, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, artifacts.MaxPacketSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, ReasonInvalidArtifact, "artifact exceeds the size limit")
			return nil, false
		}
		WriteError(w, r, http.StatusBadRequest, ReasonInvalidArtifact, "could not read request body")
		return nil, false
	}
	a, err := artifact.Parse(body)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ReasonInvalidArtifact, err.Error())
		return nil, false
	}
	return a, true
}
