// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

// Counters emitted on the configured metrics.MetricSink. Every counter is
// labelled with the carrier kind plus the labels given to WithMetricLabels.
var (
	MetricSessionOpenCount      = []string{"sesstype", "session", "open", "count"}
	MetricSessionCloseCount     = []string{"sesstype", "session", "close", "count"}
	MetricValueSentCount        = []string{"sesstype", "value", "sent", "count"}
	MetricValueRecvCount        = []string{"sesstype", "value", "recv", "count"}
	MetricChoiceSentCount       = []string{"sesstype", "choice", "sent", "count"}
	MetricChoiceRecvCount       = []string{"sesstype", "choice", "recv", "count"}
	MetricTransportErrorCount   = []string{"sesstype", "transport", "error", "count"}
	MetricViolationCount        = []string{"sesstype", "violation", "count"}
	MetricLeakCount             = []string{"sesstype", "leak", "count"}
	MetricHandshakeRejectCount  = []string{"sesstype", "handshake", "reject", "count"}
	MetricParticipantErrorCount = []string{"sesstype", "participant", "error", "count"}
)

type TelemetryLabel string

var (
	LabelCarrier     TelemetryLabel = "carrier"
	LabelError       TelemetryLabel = "error"
	LabelOp          TelemetryLabel = "op"
	LabelParticipant TelemetryLabel = "participant"
	LabelProtocol    TelemetryLabel = "protocol"
	LabelRemote      TelemetryLabel = "remote_protocol"
	LabelSerial      TelemetryLabel = "serial"
	LabelSession     TelemetryLabel = "session"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
