/*
Package log provides structured logging for the coordination substrate using
zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("scheduler")               │          │
	│  │  - WithWorkerID("worker/0")                 │          │
	│  │  - WithCallID(callID)                       │          │
	│  │  - WithStage(stageIndex)                    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "scheduler",                │          │
	│  │    "time": "2024-10-13T10:30:00Z",         │          │
	│  │    "message": "node registered"             │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2024-10-13T10:30:00Z INF node registered component=scheduler │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console

Context Loggers:
  - WithComponent: Add component name ("scheduler", "communicator", "stage", "dataset")
  - WithWorkerID: Add job/task identity to all logs
  - WithCallID: Add a rendezvous call's correlation id
  - WithStage: Add a stage index

# Usage

Initializing the Logger:

	import "github.com/efls-io/efls-go/pkg/log"

	// JSON output (production)
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	// Console output (development)
	log.Init(log.Config{Level: log.DebugLevel, JSONOutput: false})

Simple Logging:

	log.Info("scheduler listening")
	log.Debug("polling cluster topology")
	log.Warn("rendezvous wait exceeded default timeout")
	log.Error("failed to connect to peer")
	log.Fatal("cannot start without a cluster config") // exits process

Structured Logging:

	log.Logger.Info().
		Str("job", "worker").
		Int64("id", 0).
		Msg("registered with scheduler")

	log.Logger.Error().
		Err(err).
		Str("peer_addr", peerAddr).
		Msg("communicator connection failed")

Component Loggers:

	schedLog := log.WithComponent("scheduler")
	schedLog.Info().Msg("accepted registration")

	workerLog := log.WithWorkerID("worker/0")
	workerLog.Info().Msg("communicator connected")

	callLog := log.WithCallID(callID)
	callLog.Debug().Msg("rendezvous request queued")

# Integration Points

This package integrates with:

  - pkg/scheduler: logs registration and cluster-readiness transitions
  - pkg/reporter: logs heartbeat outcomes
  - pkg/communicator: logs connection lifecycle and rendezvous timeouts
  - pkg/stage: logs barrier state transitions
  - pkg/dataset: logs iterator exhaustion and work queue lifecycle

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing

Context Logger Pattern:
  - Create child loggers with context fields (WithComponent, WithWorkerID, ...)
  - Pass context loggers into long-lived structs at construction time
  - Avoids repetitive field specification at every call site

Structured Logging Pattern:
  - Use typed fields (.Str, .Int64, .Err)
  - Parseable by log aggregation tools

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers at construction time
  - Log errors with .Err() for consistent error formatting

Don't:
  - Log sensitive data (TLS keys, secrets)
  - Use Debug level in production
  - Log in tight loops without sampling

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
