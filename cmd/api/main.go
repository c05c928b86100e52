// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/kafka"
	"github.com/UnendingLoop/PhotoSigner/internal/mwlogger"
	"github.com/UnendingLoop/PhotoSigner/internal/repository"
	"github.com/UnendingLoop/PhotoSigner/internal/service"
	"github.com/UnendingLoop/PhotoSigner/internal/storage"
	"github.com/UnendingLoop/PhotoSigner/internal/transport"
	"github.com/sourcegraph/conc"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

const orphansBatch = 20

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	err := zlog.SetLevel("info")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// накатываем миграцию
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	// подключиться к хранилищу
	strg := storage.NewPhotoStorage(ctx, appConfig, 10*time.Second)
	if strg == nil {
		log.Fatalln("Interrupted while connecting to photo storage")
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresPhotoRepo(dbConn)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 10*time.Second); err != nil {
		log.Fatalf("Kafka is not reachable: %v", err)
	}
	// подключиться к кафке как продюсер
	topic := appConfig.GetString("KAFKA_TOPIC")
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		log.Fatalf("Failed to init Kafka topics: %v", err)
	}
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	// создаем экземпляр сервиса
	var svc PhotoAPIService = service.NewPhotoService(appConfig, repo, pub, strg)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewPhotoHandler(svc)
	// сетапим сервер
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/photos/upload", handlers.Create)        // загрузка фото на подпись
	engine.GET("/photos", handlers.GetAllPhotos)          // список задач с пагинацией и сортировкой
	engine.GET("/photos/:id", handlers.GetPhoto)          // статус задачи и выбранная подпись
	engine.GET("/photos/:id/result", handlers.LoadResult) // загрузка подписанного фото
	engine.DELETE("/photos/:id", handlers.Delete)         // удаление

	srv := &http.Server{
		Addr:              ":" + appConfig.GetString("APP_PORT"),
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших задач
	var recovery conc.WaitGroup
	recovery.Go(func() { recoveryLoop(ctx, svc) })

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	// продюсер и базу закрываем только после выхода recoveryLoop
	recovery.Wait()
	shutdown(srv, pub, dbConn)
	log.Println("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc PhotoAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, orphansBatch)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Stopping HTTP server
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Println("Failed to shutdown HTTP server:", err)
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
