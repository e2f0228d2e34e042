package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"conduit/core"
	"conduit/util/goroutine"

	"github.com/gorilla/websocket"
)

// WebSocket configuration constants
const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// startWait is the time allowed for the client to send the run request.
	startWait = 30 * time.Second

	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Stream message types
const (
	messageStep   = "step"
	messageResult = "result"
	messageError  = "error"
)

// WebSocketMessage is a message sent to a run stream client.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// newUpgrader builds an upgrader that accepts the configured browser origins.
func (a *API) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return a.originAllowed(r.Header.Get("Origin"))
		},
	}
}

// streamWorkflowRun godoc
//
//	@Summary		Stream a workflow test run
//	@Description	WebSocket endpoint. The client sends one RunWorkflowRequest message; the server answers with a "step" message per node and a final "result" (or "error") message.
//	@Tags			workflows
//	@Param			id	path	string	true	"Workflow ID"
//	@Success		101
//	@Security		BasicAuth
//	@Router			/api/workflows/{id}/run/stream [get]
func (a *API) streamWorkflowRun(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	logger := LogWithRequestID(r.Context(), a.logger)

	upgrader := a.newUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	var req RunWorkflowRequest
	_ = conn.SetReadDeadline(time.Now().Add(startWait))
	if err := conn.ReadJSON(&req); err != nil {
		logger.Debugw("Run stream closed before request", "workflow_id", id, "error", err)
		a.sendStream(conn, messageError, ErrorResponse{Error: "Invalid run request"})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// The only expected client frame after the request is a close
	goroutine.Go("run-stream-reader", a.logger, func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	})

	result, err := a.workflows.Run(ctx, id, req.Input, func(step core.StepResult) {
		a.sendStream(conn, messageStep, step)
	})
	if err != nil {
		status, body := classifyError("run workflow", err, http.StatusInternalServerError)
		logger.Warnw("Workflow run failed", "workflow_id", id, "status", status, "error", err)
		body.Error = sanitizeErrorMessage(body.Error)
		a.sendStream(conn, messageError, body)
	} else {
		a.sendStream(conn, messageResult, result)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (a *API) sendStream(conn *websocket.Conn, msgType string, data interface{}) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := WebSocketMessage{Type: msgType, Data: data, Timestamp: time.Now().UTC()}
	if err := conn.WriteJSON(msg); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		a.logger.Debugw("Failed to write stream message", "type", msgType, "error", err)
	}
}
