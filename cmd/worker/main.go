package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/kafka"
	"github.com/UnendingLoop/PhotoSigner/internal/repository"
	"github.com/UnendingLoop/PhotoSigner/internal/service"
	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	"github.com/UnendingLoop/PhotoSigner/internal/storage"
	"github.com/UnendingLoop/PhotoSigner/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var errEmptyLibrary = errors.New("sign library has no decodable signs")

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel("info"); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// библиотека подписей грузится до старта консьюмера и дальше только читается
	signDir := appConfig.GetString("SIGN_LIBRARY_DIR")
	if signDir == "" {
		signDir = "./signs"
	}
	lib, err := loadSigns(signDir)
	if err != nil {
		log.Fatalf("Failed to load sign library from %q: %v", signDir, err)
	}
	drawer := signer.NewDrawer(lib, nil)

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// подкллючиться к хранилищу
	strg := storage.NewPhotoStorage(ctx, appConfig, 10*time.Second)
	if strg == nil {
		log.Fatalln("Interrupted while connecting to photo storage")
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresPhotoRepo(dbConn)
	// создаем экземпляр сервиса - хранилище воркер держит сам
	svc := service.NewPhotoService(appConfig, repo, NoopPublisher{}, nil)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 10*time.Second); err != nil {
		log.Fatalf("Kafka is not reachable: %v", err)
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	w := worker.NewWorkerInstance(strg, svc, queue, cons, drawer, svc.ResultPrefix())
	wait := w.Start(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	// задача в работе дописывает статус в базу и читает библиотеку - ждем ее
	wait()
	shutdown(cons, dbConn)
	lib.Clear()
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
