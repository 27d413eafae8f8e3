package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

var buildFeatures = []string{
	"gdbstub",
	"devhud",
	"local-console",
}

func printVersion() {
	fmt.Printf("quadcore - four-core CPU execution driver\n")
	fmt.Printf("go: %s, os/arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Printf("features: %v\n", buildFeatures)
}

func main() {
	fs := flag.NewFlagSet("quadcore", flag.ExitOnError)
	settings, err := ParseSettings(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadcore: %v\n", err)
		os.Exit(1)
	}

	printVersion()

	gdb := NewGdbServer()
	gdb.SetServerPort(uint16(settings.GdbStubPort))
	if settings.GdbStubEnabled {
		gdb.DeferStart()
	}

	manager := NewCpuManager(settings, gdb, func(idx CoreIndex) ArchCore {
		return newLoopArchCore(settings.TimingSliceBudget)
	}, func(idx CoreIndex) PerCoreScheduler {
		return newRoundRobinScheduler()
	})
	manager.Initialize()
	seedSchedulers(manager)

	manager.StartThreads()
	defer manager.Shutdown()

	var console *LocalConsole
	if settings.LocalConsole {
		console = NewLocalConsole(manager, gdb)
		if err := console.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "quadcore: local console: %v\n", err)
		} else {
			defer console.Stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if settings.DevHUDEnabled {
		go runDispatchLoop(manager, sigCh)
		hud := NewDevHUD(manager, gdb, settings.DevHUDBeep)
		if err := hud.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "quadcore: devhud: %v\n", err)
		}
		return
	}

	runDispatchLoop(manager, sigCh)
}

func runDispatchLoop(manager *CpuManager, sigCh <-chan os.Signal) {
	if manager.settings.UseMultiCore {
		<-sigCh
		return
	}
	for {
		select {
		case <-sigCh:
			return
		default:
			manager.RunLoop(true)
		}
	}
}

// seedSchedulers gives each core's reference scheduler one runnable
// synthetic thread so the driver has something to dispatch out of the
// box; a real front end would populate this from the kernel's own
// thread creation path instead.
func seedSchedulers(manager *CpuManager) {
	for i := CoreIndex(0); i < NumCores; i++ {
		if rr, ok := manager.scheds[i].(*roundRobinScheduler); ok {
			rr.SetRunnable(i, ThreadHandle(uint64(i)+1))
		}
	}
}
