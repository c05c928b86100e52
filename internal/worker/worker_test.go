package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/imageproc"
	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encoded(img image.Image, f imaging.Format) []byte {
	var buf bytes.Buffer
	_ = imaging.Encode(&buf, img, f)
	return buf.Bytes()
}

func whiteDrawer() *signer.Drawer {
	lib := signer.NewLibrary()
	lib.Add("white.png", imageproc.NewPicture(uniform(8, 8, color.NRGBA{R: 255, G: 255, B: 255, A: 255}), imaging.PNG))
	return signer.NewDrawer(lib, nil)
}

func ago(d time.Duration) *time.Time {
	t := time.Now().Add(-d)
	return &t
}

func pngSource(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(encoded(uniform(40, 30, color.NRGBA{A: 255}), imaging.PNG))), model.PNG, nil
}

func topLeft() model.SignOptions {
	return model.SignOptions{Corner: "top-left", ScaleRate: 1}
}

func TestWorker_initProcessor(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	tests := []struct {
		name      string
		photo     *model.Photo
		getErr    error
		updateErr error
		wantErr   error
	}{
		{
			name:  "already done",
			photo: &model.Photo{Status: model.StatusDone},
		},
		{
			name:  "already failed",
			photo: &model.Photo{Status: model.StatusFailed},
		},
		{
			name:    "in progress",
			photo:   &model.Photo{Status: model.StatusInProgress, UpdatedAt: ago(time.Minute)},
			wantErr: errInProgress,
		},
		{
			name:    "photo not found",
			getErr:  model.ErrPhotoNotFound,
			wantErr: model.ErrPhotoNotFound,
		},
		{
			name:      "update status error",
			photo:     &model.Photo{Status: model.StatusCreated},
			updateErr: errors.New("db down"),
			wantErr:   errors.New("db down"),
		},
		{
			name:  "result already stored",
			photo: &model.Photo{Status: model.StatusCreated, ResultKey: "res/1.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWorkerService{
				getFn: func(ctx context.Context, _ string) (*model.Photo, error) {
					return tt.photo, tt.getErr
				},
				updateFn: func(ctx context.Context, _ string, _ model.Status) error {
					return tt.updateErr
				},
				saveResultFn: func(ctx context.Context, _ *model.Photo) error {
					return nil
				},
			}

			w := &Worker{
				service:      svc,
				storage:      &mockStorage{},
				drawer:       whiteDrawer(),
				resultPrefix: "res/",
			}

			err := w.initProcessor(ctx, id)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, errInProgress), errors.Is(tt.wantErr, model.ErrPhotoNotFound):
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestWorker_processTask_OK(t *testing.T) {
	ctx := context.Background()

	photo := &model.Photo{
		UID:       uuid.New(),
		Status:    model.StatusInProgress,
		SourceKey: "src.png",
		Options:   topLeft(),
	}

	var putKey, putCT string
	var putData []byte
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader(encoded(uniform(40, 30, color.NRGBA{A: 255}), imaging.PNG))), model.PNG, nil
		},
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			putKey, putCT = key, ct
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, size, int64(len(data)))
			putData = data
			return nil
		},
	}

	svc := &mockWorkerService{
		saveResultFn: func(ctx context.Context, p *model.Photo) error {
			require.Equal(t, model.StatusDone, p.Status)
			require.NotEmpty(t, p.ResultKey)
			require.Equal(t, "white.png", *p.SignName)
			require.Greater(t, *p.Distance, 0.0)
			return nil
		},
	}

	w := &Worker{
		storage:      storage,
		service:      svc,
		drawer:       whiteDrawer(),
		resultPrefix: "res/",
	}

	require.NoError(t, w.processTask(ctx, photo))
	require.Equal(t, "res/"+photo.UID.String()+".png", putKey)
	require.Equal(t, model.PNG, putCT)

	img, err := imaging.Decode(bytes.NewReader(putData))
	require.NoError(t, err)
	require.Equal(t, image.Pt(40, 30), img.Bounds().Size())
}

func TestWorker_processTask_MaxSide(t *testing.T) {
	opts := topLeft()
	opts.MaxSide = 20

	var putData []byte
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return io.NopCloser(bytes.NewReader(encoded(uniform(40, 30, color.NRGBA{A: 255}), imaging.JPEG))), model.JPEG, nil
			},
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
				require.Equal(t, model.JPEG, ct)
				putData, _ = io.ReadAll(r)
				return nil
			},
		},
		service:      &mockWorkerService{saveResultFn: func(context.Context, *model.Photo) error { return nil }},
		drawer:       whiteDrawer(),
		resultPrefix: "res/",
	}

	require.NoError(t, w.processTask(context.Background(), &model.Photo{UID: uuid.New(), Options: opts}))
	img, err := imaging.Decode(bytes.NewReader(putData))
	require.NoError(t, err)
	require.Equal(t, image.Pt(20, 15), img.Bounds().Size())
}

func TestWorker_processTask_NoCandidate(t *testing.T) {
	var saved *model.Photo
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				// фото меньше подписи
				return io.NopCloser(bytes.NewReader(encoded(uniform(4, 4, color.NRGBA{A: 255}), imaging.PNG))), model.PNG, nil
			},
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
				t.Fatal("nothing must be stored")
				return nil
			},
		},
		service: &mockWorkerService{saveResultFn: func(ctx context.Context, p *model.Photo) error {
			saved = p
			return nil
		}},
		drawer: whiteDrawer(),
	}

	require.NoError(t, w.processTask(context.Background(), &model.Photo{UID: uuid.New(), Options: topLeft()}))
	require.Equal(t, model.StatusFailed, saved.Status)
	require.Contains(t, saved.ErrMsg, model.ErrNoSuitableSign.Error())
	require.Empty(t, saved.ResultKey)
}

func TestWorker_processTask_SourceError(t *testing.T) {
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return nil, "", errors.New("storage down")
			},
		},
		drawer: whiteDrawer(),
	}

	err := w.processTask(context.Background(), &model.Photo{Options: topLeft()})
	require.Error(t, err)
	require.False(t, final(err))
}

func TestWorker_processTask_BrokenPhoto(t *testing.T) {
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader([]byte("not-an-image"))), "", nil
		},
	}

	w := &Worker{storage: storage, drawer: whiteDrawer()}

	err := w.processTask(context.Background(), &model.Photo{Options: topLeft()})
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)
	require.True(t, final(err))
}

func TestWorker_processTask_BadOptions(t *testing.T) {
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader(encoded(uniform(40, 30, color.NRGBA{A: 255}), imaging.PNG))), model.PNG, nil
		},
	}

	w := &Worker{storage: storage, drawer: whiteDrawer()}

	err := w.processTask(context.Background(), &model.Photo{Options: model.SignOptions{Corner: "middle"}})
	require.ErrorIs(t, err, model.ErrIncorrectOptions)
}

func TestWorker_handle_CommitPolicy(t *testing.T) {
	brokenSource := func(ctx context.Context, key string) (io.ReadCloser, string, error) {
		return io.NopCloser(bytes.NewReader([]byte("broken"))), "", nil
	}
	downSource := func(ctx context.Context, key string) (io.ReadCloser, string, error) {
		return nil, "", errors.New("storage down")
	}

	tests := []struct {
		name       string
		getFn      func(ctx context.Context, key string) (io.ReadCloser, string, error)
		wantCommit bool
		wantStatus model.Status
	}{
		{"broken photo is committed and failed", brokenSource, true, model.StatusFailed},
		{"storage outage is retried later", downSource, false, model.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastStatus model.Status
			svc := &mockWorkerService{
				getFn: func(ctx context.Context, id string) (*model.Photo, error) {
					return &model.Photo{Status: model.StatusCreated, Options: topLeft()}, nil
				},
				updateFn: func(ctx context.Context, id string, st model.Status) error {
					lastStatus = st
					return nil
				},
				saveResultFn: func(ctx context.Context, p *model.Photo) error {
					lastStatus = p.Status
					return nil
				},
			}
			cons := &mockCommitter{}
			w := NewWorkerInstance(&mockStorage{getFn: tt.getFn}, svc, nil, cons, whiteDrawer(), "res/")

			w.handle(context.Background(), kafkago.Message{Key: []byte(uuid.New().String())})

			require.Equal(t, tt.wantCommit, len(cons.committed) == 1)
			require.Equal(t, tt.wantStatus, lastStatus)
		})
	}
}

func TestWorker_handle_InProgressRedelivery(t *testing.T) {
	tests := []struct {
		name       string
		updatedAt  *time.Time
		wantCommit bool
		wantStatus model.Status
	}{
		{"fresh task is left to its worker", ago(time.Minute), false, ""},
		{"stale task is taken over", ago(model.OrphanAfter + time.Minute), true, model.StatusDone},
		{"task without timestamp is taken over", nil, true, model.StatusDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var statuses []model.Status
			svc := &mockWorkerService{
				getFn: func(ctx context.Context, id string) (*model.Photo, error) {
					return &model.Photo{UID: uuid.New(), Status: model.StatusInProgress, UpdatedAt: tt.updatedAt, Options: topLeft()}, nil
				},
				updateFn: func(ctx context.Context, id string, st model.Status) error {
					statuses = append(statuses, st)
					return nil
				},
				saveResultFn: func(ctx context.Context, p *model.Photo) error {
					statuses = append(statuses, p.Status)
					return nil
				},
			}
			strg := &mockStorage{
				getFn: pngSource,
				putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error { return nil },
			}
			cons := &mockCommitter{}
			w := NewWorkerInstance(strg, svc, nil, cons, whiteDrawer(), "res/")

			w.handle(context.Background(), kafkago.Message{Key: []byte(uuid.New().String())})

			require.Equal(t, tt.wantCommit, len(cons.committed) == 1)
			if tt.wantStatus == "" {
				require.Empty(t, statuses)
				return
			}
			require.Equal(t, []model.Status{model.StatusInProgress, tt.wantStatus}, statuses)
		})
	}
}

func TestWorker_initProcessor_ResetSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var resetErr error
	reset := false
	svc := &mockWorkerService{
		getFn: func(ctx context.Context, id string) (*model.Photo, error) {
			return &model.Photo{Status: model.StatusCreated, Options: topLeft()}, nil
		},
		updateFn: func(ctx context.Context, id string, st model.Status) error {
			if st == model.StatusCreated {
				reset = true
				resetErr = ctx.Err()
			}
			return nil
		},
	}
	strg := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return nil, "", ctx.Err()
		},
	}
	w := NewWorkerInstance(strg, svc, nil, &mockCommitter{}, whiteDrawer(), "res/")

	err := w.initProcessor(ctx, uuid.New().String())
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, reset)
	require.NoError(t, resetErr)
}

func TestWorker_Start_WaitsForTaskInFlight(t *testing.T) {
	q := make(chan kafkago.Message)
	started := make(chan struct{})
	release := make(chan struct{})

	svc := &mockWorkerService{
		getFn: func(ctx context.Context, id string) (*model.Photo, error) {
			close(started)
			<-release
			return nil, model.ErrPhotoNotFound
		},
	}
	cons := &mockCommitter{}
	w := NewWorkerInstance(&mockStorage{}, svc, q, cons, whiteDrawer(), "res/")

	ctx, cancel := context.WithCancel(context.Background())
	wait := w.Start(ctx)

	q <- kafkago.Message{Key: []byte(uuid.New().String())}
	<-started
	cancel()

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	isDone := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	require.Never(t, isDone, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	require.Eventually(t, isDone, time.Second, 5*time.Millisecond)
	require.Len(t, cons.committed, 1)
}

func TestWorker_StartWorker_StopsOnClosedQueue(t *testing.T) {
	q := make(chan kafkago.Message)
	close(q)

	w := NewWorkerInstance(&mockStorage{}, &mockWorkerService{}, q, &mockCommitter{}, whiteDrawer(), "res/")
	done := make(chan struct{})
	go func() {
		w.StartWorker(context.Background())
		close(done)
	}()
	<-done
}

func TestSignConfig(t *testing.T) {
	cfg := signConfig(model.SignOptions{Corner: "center", Margin: 3, ScaleRate: 0.5, AutoColor: true, MaxSide: 100})
	require.Equal(t, "center", string(cfg.Placement.Corner))
	require.Equal(t, 3, cfg.Placement.Margin)
	require.Equal(t, 0.5, cfg.Placement.ScaleRate)
	require.True(t, cfg.AutoColor)
	require.False(t, cfg.AutoScale)
}
