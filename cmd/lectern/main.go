// Command lectern narrates a text file aloud through the synthesis
// cache, with word-level progress logged as narration plays.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lectern-app/lectern/internal/cache"
	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/coordinator"
	"github.com/lectern-app/lectern/internal/playback"
	"github.com/lectern-app/lectern/internal/speech"
	"github.com/lectern-app/lectern/internal/voice"
)

var (
	configPath string
	voiceFlag  string
	speedFlag  float64
	debugFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "lectern FILE",
		Short:        "Read a text file aloud with cached speech synthesis",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&voiceFlag, "voice", "", "voice to narrate with")
	rootCmd.Flags().Float64Var(&speedFlag, "speed", 1.0, "playback speed (0.5-2.0)")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if voiceFlag != "" {
		cfg.Voice.Current = voiceFlag
	}
	if cmd.Flags().Changed("speed") {
		cfg.Speed = speedFlag
	}
	if debugFlag || cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	sentences := splitSentences(string(text))
	if len(sentences) == 0 {
		return fmt.Errorf("no sentences found in %s", args[0])
	}

	if cfg.Synthesis.Endpoint == "" {
		return fmt.Errorf("no synthesis endpoint configured; set synthesis.endpoint or LECTERN_SYNTHESIS_ENDPOINT")
	}

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return err
	}
	client, err := speech.NewClient(speech.ClientConfig{
		Endpoint:          cfg.Synthesis.Endpoint,
		Timeout:           cfg.Synthesis.Timeout,
		RequestsPerMinute: cfg.Synthesis.RequestsPerMinute,
	})
	if err != nil {
		return err
	}

	prefs := voice.NewPrefs(cfg.Voice.Current, cfg.Voice.Network)
	coord := coordinator.New(store, client, prefs)
	prefetcher := coordinator.NewPrefetcher(coord, store, prefs)
	engine := playback.NewEngine(playback.NewDeviceSink(), "")
	defer engine.Stop()

	speedCtrl := playback.NewSpeedController()
	if err := speedCtrl.SetSpeed(cfg.Speed); err != nil {
		return err
	}

	log.Info("narrating", "file", args[0], "sentences", len(sentences),
		"voice", prefs.Current(), "speed", speedCtrl.Speed())

	for i, sentence := range sentences {
		prefetcher.Prefetch(sentences, i)

		result := coord.GetOrSynthesize(cmd.Context(), sentence)
		if result == nil {
			// Network synthesis unavailable; a reading app would hand
			// this sentence to its on-device engine.
			log.Warn("falling back, no synthesized audio", "sentence", i)
			continue
		}

		done := make(chan struct{})
		err := engine.Play(result.Audio, result.Timestamps, playback.Options{
			Text:  sentence,
			Speed: speedCtrl.Speed(),
			OnWord: func(h playback.Highlight) {
				log.Debug("speaking", "word", h.Word, "start", h.Start, "end", h.End)
			},
			OnComplete: func() { close(done) },
		})
		if err != nil {
			return err
		}

		select {
		case <-done:
		case <-cmd.Context().Done():
			engine.Stop()
			return cmd.Context().Err()
		}
	}
	return nil
}
