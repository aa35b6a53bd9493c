package main

import (
	"fmt"
	"github.com/btcsuite/btclog"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/keystore"
	"github.com/czh0526/tokencore/txauthor"
	"github.com/czh0526/tokencore/wallet"
	"os"
	"sort"
	"strings"
)

// logWriter implements an io.Writer that outputs to standard error.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	return os.Stderr.Write(p)
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.
	backendLog = btclog.NewBackend(logWriter{})

	log     = backendLog.Logger("TKCR")
	kstrLog = backendLog.Logger("KSTR")
	txauLog = backendLog.Logger("TXAU")
	wlltLog = backendLog.Logger("WLLT")
	kcryLog = backendLog.Logger("KCRY")
)

func init() {
	keystore.UseLogger(kstrLog)
	txauthor.UseLogger(txauLog)
	wallet.UseLogger(wlltLog)
	keycrypt.UseLogger(kcryLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"TKCR": log,
	"KSTR": kstrLog,
	"TXAU": txauLog,
	"WLLT": wlltLog,
	"KCRY": kcryLog,
}

func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// setLogLevels sets the log level of every subsystem.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// parseAndSetDebugLevels accepts either a single level for every subsystem
// or a comma separated list of SUBSYS=LEVEL pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", logLevelPair)
		}

		subsysID, logLevel := fields[0], fields[1]
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsystems %v", subsysID, supportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				logLevel)
		}
		setLogLevel(subsysID, logLevel)
	}
	return nil
}

func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}
