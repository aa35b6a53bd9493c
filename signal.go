package main

import (
	"os"
	"os/signal"
	"syscall"
)

// interruptChannel receives the signals that stop the program.
var interruptChannel chan os.Signal

// addHandlerChannel hands new interrupt callbacks to the handler goroutine.
var addHandlerChannel = make(chan func())

// interruptHandlersDone is closed once every callback ran.
var interruptHandlersDone = make(chan struct{})

var signals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
}

// mainInterruptHandler runs the registered callbacks in reverse order of
// registration when a signal arrives.
func mainInterruptHandler() {
	var interruptCallbacks []func()
	invokeCallbacks := func() {
		for i := range interruptCallbacks {
			idx := len(interruptCallbacks) - 1 - i
			interruptCallbacks[idx]()
		}
		close(interruptHandlersDone)
	}

	for {
		select {
		case sig := <-interruptChannel:
			log.Infof("Received signal (%s). Shutting down...", sig)
			invokeCallbacks()
			return
		case handler := <-addHandlerChannel:
			interruptCallbacks = append(interruptCallbacks, handler)
		}
	}
}

// addInterruptHandler registers handler and starts listening for signals
// on first use.
func addInterruptHandler(handler func()) {
	if interruptChannel == nil {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, signals...)
		go mainInterruptHandler()
	}

	addHandlerChannel <- handler
}
