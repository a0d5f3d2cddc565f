// Command batch runs one registered batch job to completion and prints its
// task record, e.g. from cron:
//
//	batch -skill daily_metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/regps-supervision-go/internal/analysis"
	"github.com/jengzang/regps-supervision-go/internal/bootstrap"
	"github.com/jengzang/regps-supervision-go/internal/config"
	"github.com/jengzang/regps-supervision-go/internal/database"
	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/service"

	_ "github.com/jengzang/regps-supervision-go/internal/analysis/batch"
)

func main() {
	skill := flag.String("skill", "", "batch job to run ("+strings.Join(analysis.Skills(), ", ")+")")
	createdBy := flag.String("created-by", "cli", "recorded as the task creator")
	flag.Parse()

	cfg := config.Load()
	log, err := config.ConfigureLogging("regps-batch", cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}

	if *skill == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}, log); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.Close()
	db := database.GetDB()

	models := bootstrap.LoadModels(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), analysis.Deps{
		DB:      db,
		Models:  models,
		Options: bootstrap.Options(cfg),
		Log:     log,
	})

	task, err := tasks.RunTask(ctx, *skill, map[string]interface{}{"history_days": cfg.HistoryDays}, *createdBy)
	if err != nil {
		log.WithError(err).WithField("skill", *skill).Error("batch job failed")
		database.Close()
		os.Exit(1)
	}

	out, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		log.WithError(err).WithField("task_id", task.ID).Error("failed to encode task")
		database.Close()
		os.Exit(1)
	}
	fmt.Println(string(out))
}
