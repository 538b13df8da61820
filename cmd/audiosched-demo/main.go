// Command audiosched-demo exercises a Worker against fake devices and
// streams, printing a DumpThreadInfo snapshot once the loop has had a
// chance to run. It has no real hardware backing: its purpose is to give
// the scheduler core something to drive end to end outside of tests.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/crasio/audiosched"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML worker configuration file")
	runFor := pflag.DurationP("duration", "d", 500*time.Millisecond, "how long to let the worker run before dumping state")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := audiosched.DefaultConfig()
	if *configPath != "" {
		loaded, err := audiosched.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("load config", "err", err)
		}
		cfg = *loaded
	}

	w, err := audiosched.NewWorker(cfg, audiosched.NewDemoDevStreamFactory(nil), logger)
	if err != nil {
		logger.Fatal("create worker", "err", err)
	}
	defer func() {
		if err := w.Destroy(); err != nil {
			logger.Warn("destroy", "err", err)
		}
	}()

	speaker := audiosched.NewDemoDevice(0, "demo-speaker", audiosched.DirOutput)
	mic := audiosched.NewDemoDevice(1, "demo-mic", audiosched.DirInput)

	speakerHandle := w.RegisterDevice(speaker)
	micHandle := w.RegisterDevice(mic)

	if err := w.Start(); err != nil {
		logger.Fatal("start worker", "err", err)
	}

	if err := w.AddOpenDev(speakerHandle); err != nil {
		logger.Fatal("open speaker", "err", err)
	}
	if err := w.AddOpenDev(micHandle); err != nil {
		logger.Fatal("open mic", "err", err)
	}

	outStream := audiosched.NewDemoStream(1, audiosched.DirOutput, 48000, 480)
	inStream := audiosched.NewDemoStream(2, audiosched.DirInput, 48000, 480)

	outHandle := w.RegisterStream(outStream)
	inHandle := w.RegisterStream(inStream)

	if err := w.AddStream(outHandle, []audiosched.DeviceHandle{speakerHandle}); err != nil {
		logger.Fatal("attach playback stream", "err", err)
	}
	if err := w.AddStream(inHandle, []audiosched.DeviceHandle{micHandle}); err != nil {
		logger.Fatal("attach capture stream", "err", err)
	}

	logger.Info("worker running", "for", runFor.String())
	time.Sleep(*runFor)

	dump, err := w.DumpThreadInfo()
	if err != nil {
		logger.Fatal("dump thread info", "err", err)
	}

	fmt.Printf("longest wake: %s\n", dump.LongestWake)
	for _, d := range dump.OutputDevices {
		fmt.Printf("output device %d (%s): level=%d underruns=%d streams=%d\n",
			d.Index, d.Name, d.Level, d.Underruns, d.StreamCount)
	}
	for _, d := range dump.InputDevices {
		fmt.Printf("input device %d (%s): level=%d underruns=%d streams=%d\n",
			d.Index, d.Name, d.Level, d.Underruns, d.StreamCount)
	}
	fmt.Printf("events recorded: %d\n", len(dump.Events))

	if err := w.Stop(); err != nil && !errors.Is(err, audiosched.ErrStopped) {
		logger.Warn("stop", "err", err)
	}
}
