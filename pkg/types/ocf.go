package types

import "github.com/halo-hpc/halo/pkg/log"

// OcfStatus is the result of a resource agent operation, as reported by the
// agent script's exit code. The values and their numeric codes follow the
// OCF resource agent return-code convention
// (/usr/lib/ocf/lib/heartbeat/ocf-returncodes).
//
// OcfStatus is distinct from ResourceStatus: an OcfStatus describes one
// operation's outcome on one host, while a ResourceStatus is the manager's
// conclusion about where the resource is running. The two are mapped into
// each other only at the lifecycle engine boundary.
type OcfStatus int

const (
	OcfSuccess OcfStatus = iota
	OcfErrGeneric
	OcfErrArgs
	OcfErrUnimplemented
	OcfErrPerm
	OcfErrInstalled
	OcfErrConfigured
	OcfErrNotRunning
)

func (s OcfStatus) String() string {
	switch s {
	case OcfSuccess:
		return "OCF_SUCCESS"
	case OcfErrGeneric:
		return "OCF_ERR_GENERIC"
	case OcfErrArgs:
		return "OCF_ERR_ARGS"
	case OcfErrUnimplemented:
		return "OCF_ERR_UNIMPLEMENTED"
	case OcfErrPerm:
		return "OCF_ERR_PERM"
	case OcfErrInstalled:
		return "OCF_ERR_INSTALLED"
	case OcfErrConfigured:
		return "OCF_ERR_CONFIGURED"
	case OcfErrNotRunning:
		return "OCF_NOT_RUNNING"
	}
	return "OCF_ERR_UNIMPLEMENTED"
}

// Code returns the OCF exit code for this status.
func (s OcfStatus) Code() int {
	return int(s)
}

// OcfStatusFromCode maps a resource agent exit code to its status. Codes
// outside 0..7 are reported as OcfErrUnimplemented with a warning.
func OcfStatusFromCode(code int) OcfStatus {
	if code >= 0 && code <= 7 {
		return OcfStatus(code)
	}
	log.Logger.Warn().Int("code", code).Msg("Unexpected return status for resource agent")
	return OcfErrUnimplemented
}

// AgentOp is an operation performed on a resource through its agent script.
type AgentOp int

const (
	OpMonitor AgentOp = iota
	OpStart
	OpStop
)

func (o AgentOp) String() string {
	switch o {
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	}
	return "monitor"
}
