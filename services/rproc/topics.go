// services/rproc/topics.go
package rproc

import "rproc-go/bus"

// Topic layout:
//
//	config/rproc                      deployment config (retained)
//	rproc/state                       service state (retained)
//	rproc/sub/<name>/state            per-subsystem state (retained)
//	rproc/sub/<name>/control/<verb>   enable / disable

func topicConfig() bus.Topic { return bus.T("config", "rproc") }

func topicServiceState() bus.Topic { return bus.T("rproc", "state") }

func subBase(name string) bus.Topic { return bus.T("rproc", "sub", name) }

func subState(name string) bus.Topic { return subBase(name).Append("state") }

// rproc/sub/+/control/+
func ctrlWildcard() bus.Topic { return bus.T("rproc", "sub", bus.Wildcard, "control", bus.Wildcard) }
