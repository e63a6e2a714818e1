// Dance - Molty emotion choreography demo
//
// Plays every emotion in turn against the configured driver so the motion
// programs can be checked on the table. Simulated unless --live is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-molty/internal/config"
	"github.com/teslashibe/go-molty/internal/log"
	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/emotions"
	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// routine is the default choreography. Dying is only played with --finale.
var routine = []emotions.Emotion{
	emotions.Idle,
	emotions.Listening,
	emotions.Thinking,
	emotions.Excited,
	emotions.Watching,
	emotions.Winning,
	emotions.Celebrating,
	emotions.Losing,
	emotions.Error,
}

func main() {
	live := flag.Bool("live", false, "Drive real GPIO (default is simulation)")
	each := flag.Duration("each", 4*time.Second, "How long to hold each emotion")
	loops := flag.Int("loops", 1, "Times to repeat the routine (0 = until Ctrl+C)")
	finale := flag.Bool("finale", false, "End with dying (drives off the table!)")
	maxSpeed := flag.Float64("max-speed", 0.3, "Motor safety cap for the demo")
	flag.Parse()

	log.Init("warn")

	fmt.Println("🦀 Molty Dance Demo")
	fmt.Println("===================")

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	cfg.LoadEnv()
	cfg.Simulate = !*live
	cfg.Motors.MaxSpeed = *maxSpeed
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	ac := cfg.Actuator()
	ac.Logger = log.L()
	driver := actuator.Open(ac)

	ctl, err := scheduler.New(driver, scheduler.EmitterFunc(printEvent), scheduler.WithLogger(log.L()))
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	ctl.Announce()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("\n🎵 Let's dance! (Ctrl+C to stop)")
	dance(ctx, ctl, *each, *loops)

	if *finale && ctx.Err() == nil {
		fmt.Println("\n💀 Finale...")
		if err := ctl.SetEmotion(string(emotions.Dying)); err == nil {
			if t := ctl.Current(); t != nil {
				<-t.Done()
			}
		}
	}

	fmt.Println("\n👋 Stopping dance...")
	if err := ctl.Shutdown(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
		os.Exit(1)
	}
}

// dance plays the routine until it has run loops times or ctx is cancelled.
func dance(ctx context.Context, ctl *scheduler.Controller, each time.Duration, loops int) {
	for i := 0; loops == 0 || i < loops; i++ {
		for _, e := range routine {
			desc := ""
			if p, err := ctl.Library().Program(e); err == nil {
				desc = p.Description
			}
			fmt.Printf("\n🎵 %-12s %s\n", e, desc)

			if err := ctl.SetEmotion(string(e)); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(each):
			}
		}
	}
}

func printEvent(e protocol.Event) {
	switch e.Status {
	case protocol.StatusError:
		fmt.Printf("   ❌ %s\n", e.Message)
	case protocol.StatusBlocked:
		fmt.Printf("   🚫 %s\n", e.Message)
	default:
		fmt.Printf("   ✅ %s: %s\n", e.Status, e.Message)
	}
}
