package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/envisionhq/sceneflow/checkpoint"
	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/workflow"
)

// generateCmd runs the full pipeline interactively in the terminal,
// with in-memory checkpoints. The decision loop mirrors the API's
// accept/edit cycle.
func generateCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			client := llm.NewClient(llm.Endpoint{
				Provider: cfg.Model.Provider,
				URL:      cfg.Model.Endpoint,
				Model:    cfg.Model.Default,
			},
				llm.WithLogger(logger),
				llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
			)
			gen := imageprompt.NewGenerator(client, imageprompt.WithLogger(logger))
			stages := workflow.NewStages(client, gen, logger)

			return runInteractive(cmd.Context(), stages)
		},
	}
}

func runInteractive(ctx context.Context, stages *workflow.Stages) error {
	store := checkpoint.NewMemoryStore()
	runnerOpts := []workflow.RunnerOption{workflow.WithCheckpointStore(store)}

	fresh, err := workflow.NewScriptGraph(stages, workflow.StageGenerateScript).Compile(runnerOpts...)
	if err != nil {
		return fmt.Errorf("compile graph: %w", err)
	}
	resume, err := workflow.NewScriptGraph(stages, workflow.StageDecideRewrite).Compile(runnerOpts...)
	if err != nil {
		return fmt.Errorf("compile graph: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)

	concept := promptLine(scanner, "Concept: ")
	if concept == "" {
		return fmt.Errorf("a concept is required")
	}
	numScenes := 5
	if raw := promptLine(scanner, "Number of scenes [5]: "); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			numScenes = n
		}
	}
	creativity := promptLine(scanner, "Creativity (factual/balanced/creative) [balanced]: ")
	trigger := promptLine(scanner, "Trigger word (optional): ")

	const tid = "interactive"
	st := &workflow.State{
		Concept:     concept,
		NumScenes:   numScenes,
		Creativity:  creativity,
		TriggerWord: trigger,
	}

	fmt.Println("\nGenerating script...")
	res, err := fresh.Invoke(ctx, st,
		workflow.WithThreadID(tid),
		workflow.WithInterruptBefore(workflow.StageDecideRewrite),
	)
	if err != nil {
		return err
	}
	if res.State.Error != "" {
		return fmt.Errorf("script generation failed: %s", res.State.Error)
	}
	fmt.Println("\n" + res.State.Script)

	// Decision loop: keep editing until the script is accepted.
	for res.Interrupted {
		fmt.Println("\nCommands: accept | edit <scene> <instructions> | editall <instructions> | quit")
		line := promptLine(scanner, "> ")
		if line == "" {
			continue
		}

		var patch *workflow.Patch
		var opts []workflow.InvokeOption

		switch cmd, rest, _ := strings.Cut(line, " "); cmd {
		case "quit", "exit":
			return nil
		case "accept":
			patch = &workflow.Patch{Decision: workflow.DecisionAccept}
		case "edit":
			numRaw, instructions, _ := strings.Cut(rest, " ")
			n, err := strconv.Atoi(numRaw)
			if err != nil || n < 1 {
				fmt.Println("Usage: edit <scene> <instructions>")
				continue
			}
			patch = &workflow.Patch{
				Decision:            workflow.DecisionEdit,
				SceneToEdit:         n,
				RewriteInstructions: strings.TrimSpace(instructions),
			}
			opts = append(opts, workflow.WithInterruptBefore(workflow.StageDecideRewrite))
		case "editall":
			patch = &workflow.Patch{
				Decision:            workflow.DecisionEdit,
				EditAllScenes:       true,
				RewriteInstructions: strings.TrimSpace(rest),
			}
			opts = append(opts, workflow.WithInterruptBefore(workflow.StageDecideRewrite))
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
			continue
		}

		res, err = resume.Resume(ctx, tid, nil, patch, opts...)
		if err != nil {
			return err
		}
		if res.State.Error != "" {
			fmt.Printf("Error: %s\n", res.State.Error)
			continue
		}
		if res.Interrupted {
			fmt.Println("\n" + res.State.Script)
		}
	}

	fmt.Println("\nImage prompts:")
	for _, p := range res.State.ImagePrompts {
		fmt.Printf("\nScene %d: %s\n  %s\n", p.SceneNumber, p.SceneTitle, p.ImagePrompt)
	}
	return nil
}

func promptLine(scanner *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
