package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/messaging"
	"game-building-server/shared/models"
)

// Compile-time check to ensure progressionServiceImpl implements ProgressionService
var _ interfaces.ProgressionService = (*progressionServiceImpl)(nil)

// progressionServiceImpl — ядро прогрессии. Все read-modify-write операции
// над игроком выполняются внутри транзакции с блокировкой строки игрока
// (GetForUpdate), поэтому запрос клиента и сработавший колбэк планировщика
// для одного игрока никогда не перемежаются.
type progressionServiceImpl struct {
	playerRepo   interfaces.PlayerRepository
	buildingRepo interfaces.BuildingRepository
	scheduler    interfaces.CompletionScheduler
	publisher    interfaces.GroupPublisher
	txm          interfaces.TxManager
	logger       *zap.Logger
	now          func() time.Time // подменяется в тестах
}

// NewProgressionService creates a new instance of progressionServiceImpl.
func NewProgressionService(
	playerRepo interfaces.PlayerRepository,
	buildingRepo interfaces.BuildingRepository,
	scheduler interfaces.CompletionScheduler,
	publisher interfaces.GroupPublisher,
	txm interfaces.TxManager,
	logger *zap.Logger,
) interfaces.ProgressionService {
	return &progressionServiceImpl{
		playerRepo:   playerRepo,
		buildingRepo: buildingRepo,
		scheduler:    scheduler,
		publisher:    publisher,
		txm:          txm,
		logger:       logger.Named("ProgressionService"),
		now:          time.Now,
	}
}

// canStart — валидатор зависимостей. Шаги в строгом порядке, с
// остановкой на первой ошибке:
//  1. поиск определения в каталоге;
//  2. скан записей игрока на дубликат (failed не блокирует повтор);
//  3. проверка достаточности ресурсов;
//  4. проверка завершенности каждой зависимости в порядке списка каталога.
//
// При успехе возвращает найденное определение, чтобы вызывающий код не
// ходил в каталог второй раз.
func (s *progressionServiceImpl) canStart(ctx context.Context, player *models.Player, buildingID int) (*models.Building, error) {
	building, err := s.buildingRepo.GetByBuildingID(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	if existing := player.GetBuilding(buildingID); existing != nil {
		switch existing.Status {
		case models.BuildStatusInProgress:
			return nil, models.ErrAlreadyInProgress
		case models.BuildStatusCompleted:
			return nil, models.ErrAlreadyCompleted
		}
	}

	if !player.Resources.HasSufficient(building.RequiredWood, building.RequiredStone) {
		return nil, models.ErrInsufficientResources
	}

	for _, depID := range building.Dependencies {
		if !player.HasCompletedBuilding(depID) {
			return nil, models.NewDependencyNotMetError(depID)
		}
	}

	return building, nil
}

// StartBuilding validates, consumes resources, appends an InProgress record
// and schedules the delayed completion. Nothing partial is ever persisted:
// a scheduling failure refunds the consumed resources and aborts the
// transaction before surfacing the error.
func (s *progressionServiceImpl) StartBuilding(ctx context.Context, playerID uuid.UUID, buildingID int) (*models.PlayerBuilding, error) {
	var started models.PlayerBuilding

	err := s.txm.WithTx(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		player, err := s.playerRepo.GetForUpdate(ctx, tx, playerID)
		if err != nil {
			return err
		}

		building, err := s.canStart(ctx, player, buildingID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		finishEta := now.Add(time.Duration(building.BuildTime) * time.Second)

		if err := player.Resources.Consume(building.RequiredWood, building.RequiredStone); err != nil {
			return err
		}

		taskID, err := s.scheduler.Schedule(ctx, finishEta.Sub(now), messaging.CompletionTaskPayload{
			PlayerID:   playerID,
			BuildingID: buildingID,
		})
		if err != nil {
			// Компенсация до возврата ошибки: баланс возвращается, транзакция
			// откатывается, запись не появляется.
			player.Resources.Credit(building.RequiredWood, building.RequiredStone)
			s.logger.Error("Scheduling failed, start aborted",
				zap.Error(err),
				zap.String("playerID", playerID.String()),
				zap.Int("buildingID", buildingID))
			return fmt.Errorf("%w: %w", models.ErrSchedulingFailure, err)
		}

		record := models.PlayerBuilding{
			BuildingID: buildingID,
			Status:     models.BuildStatusInProgress,
			StartedAt:  now,
			FinishEta:  finishEta,
			TaskID:     taskID,
		}
		player.Buildings = append(player.Buildings, record)

		if err := s.playerRepo.Save(ctx, tx, player); err != nil {
			// Задача уже опубликована; отзываем её, чтобы не ждать пустого
			// срабатывания. Идемпотентный complete прикрывает и без этого.
			if cancelErr := s.scheduler.Cancel(ctx, taskID); cancelErr != nil {
				s.logger.Warn("Failed to revoke task after save failure", zap.Error(cancelErr), zap.String("taskID", taskID))
			}
			return err
		}

		started = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	buildingsStarted.Inc()
	s.logger.Info("Building started",
		zap.String("playerID", playerID.String()),
		zap.Int("buildingID", buildingID),
		zap.Time("finishEta", started.FinishEta))
	return &started, nil
}

// AccelerateBuilding recomputes the remaining time and re-arms the scheduler;
// percent=100 completes synchronously. Rescheduling is cancel-then-schedule,
// so at most one live handle points at the record at any moment.
func (s *progressionServiceImpl) AccelerateBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, percent float64) (*models.AccelerateOutcome, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("percent must be within [0, 100]: %w", models.ErrInvalidInput)
	}

	var (
		outcome       models.AccelerateOutcome
		updatedPlayer *models.Player
	)

	err := s.txm.WithTx(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		player, err := s.playerRepo.GetForUpdate(ctx, tx, playerID)
		if err != nil {
			return err
		}

		record := player.GetBuilding(buildingID)
		if record == nil || record.Status != models.BuildStatusInProgress {
			return models.ErrNotInProgress
		}

		now := s.now().UTC()
		timeLeft := record.FinishEta.Sub(now).Seconds()
		if timeLeft <= 0 {
			return models.ErrAlreadyDue
		}

		// percent=100 обязан давать ровно 0, без плавающей погрешности.
		var newTimeLeft float64
		if percent == 100 {
			newTimeLeft = 0
		} else {
			reduction := timeLeft * percent / 100
			newTimeLeft = math.Max(0, timeLeft-reduction)
		}

		// Сначала cancel, потом schedule: окно с двумя живыми колбэками
		// исключено. Отзыв best-effort, ошибку только логируем.
		if err := s.scheduler.Cancel(ctx, record.TaskID); err != nil {
			s.logger.Warn("Best-effort cancel failed",
				zap.Error(err),
				zap.String("taskID", record.TaskID),
				zap.Int("buildingID", buildingID))
		}

		if newTimeLeft == 0 {
			// Немедленное завершение: синхронно, минуя планировщик.
			record.Status = models.BuildStatusCompleted
			record.FinishEta = now
			record.TaskID = ""
			if err := s.playerRepo.Save(ctx, tx, player); err != nil {
				return err
			}
			outcome = models.AccelerateOutcome{BuildingID: buildingID, Completed: true, NewFinishEta: now}
			updatedPlayer = player
			return nil
		}

		newFinishEta := now.Add(time.Duration(newTimeLeft * float64(time.Second)))
		taskID, err := s.scheduler.Schedule(ctx, newFinishEta.Sub(now), messaging.CompletionTaskPayload{
			PlayerID:   playerID,
			BuildingID: buildingID,
		})
		if err != nil {
			s.logger.Error("Rescheduling failed, acceleration aborted",
				zap.Error(err),
				zap.String("playerID", playerID.String()),
				zap.Int("buildingID", buildingID))
			return fmt.Errorf("%w: %w", models.ErrSchedulingFailure, err)
		}

		record.FinishEta = newFinishEta
		record.TaskID = taskID
		if err := s.playerRepo.Save(ctx, tx, player); err != nil {
			if cancelErr := s.scheduler.Cancel(ctx, taskID); cancelErr != nil {
				s.logger.Warn("Failed to revoke task after save failure", zap.Error(cancelErr), zap.String("taskID", taskID))
			}
			return err
		}
		outcome = models.AccelerateOutcome{BuildingID: buildingID, Completed: false, NewFinishEta: newFinishEta}
		return nil
	})
	if err != nil {
		return nil, err
	}

	buildingsAccelerated.Inc()
	if outcome.Completed {
		// Уведомления — после коммита; их сбой не откатывает переход.
		buildingsCompleted.Inc()
		s.publishCompletionEvents(ctx, updatedPlayer, buildingID)
	}
	return &outcome, nil
}

// CompleteBuilding is the idempotent completion transition. It returns false
// (no-op) when the record is missing, already terminal, or when taskID no
// longer matches the record's current handle (a stale schedule firing after
// acceleration). Notifications fire only on a true transition.
func (s *progressionServiceImpl) CompleteBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, taskID string) (bool, error) {
	var (
		updated       bool
		updatedPlayer *models.Player
	)

	err := s.txm.WithTx(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		player, err := s.playerRepo.GetForUpdate(ctx, tx, playerID)
		if err != nil {
			return err
		}

		record := player.GetBuilding(buildingID)
		if record == nil || record.Status != models.BuildStatusInProgress {
			return nil // no-op
		}
		if taskID != "" && record.TaskID != taskID {
			// Устаревшее расписание: запись уже переармирована ускорением.
			s.logger.Debug("Stale completion task ignored",
				zap.String("taskID", taskID),
				zap.String("currentTaskID", record.TaskID),
				zap.Int("buildingID", buildingID))
			return nil
		}

		record.Status = models.BuildStatusCompleted
		record.TaskID = ""
		if err := s.playerRepo.Save(ctx, tx, player); err != nil {
			return err
		}
		updated = true
		updatedPlayer = player
		return nil
	})
	if err != nil {
		return false, err
	}

	if updated {
		buildingsCompleted.Inc()
		s.logger.Info("Building completed",
			zap.String("playerID", playerID.String()),
			zap.Int("buildingID", buildingID))
		s.publishCompletionEvents(ctx, updatedPlayer, buildingID)
	}
	return updated, nil
}

// FailBuilding переводит запись в терминальный Failed (например, когда
// бэкенд планировщика сообщил о невозможности выполнить задачу). Как и
// complete — идемпотентен.
func (s *progressionServiceImpl) FailBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, reason string) (bool, error) {
	var (
		updated       bool
		updatedPlayer *models.Player
	)

	err := s.txm.WithTx(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		player, err := s.playerRepo.GetForUpdate(ctx, tx, playerID)
		if err != nil {
			return err
		}

		record := player.GetBuilding(buildingID)
		if record == nil || record.Status != models.BuildStatusInProgress {
			return nil // no-op
		}

		record.Status = models.BuildStatusFailed
		record.TaskID = ""
		if err := s.playerRepo.Save(ctx, tx, player); err != nil {
			return err
		}
		updated = true
		updatedPlayer = player
		return nil
	})
	if err != nil {
		return false, err
	}

	if updated {
		s.logger.Warn("Building failed",
			zap.String("playerID", playerID.String()),
			zap.Int("buildingID", buildingID),
			zap.String("reason", reason))
		s.publishEvent(ctx, updatedPlayer.ID, models.NewPlayerUpdatedEvent(updatedPlayer.Snapshot()))
	}
	return updated, nil
}

// SetResources — административная установка абсолютных значений баланса.
// Намеренно отделена от игровых дельта-операций Consume/Credit.
func (s *progressionServiceImpl) SetResources(ctx context.Context, playerID uuid.UUID, wood, stone *int) (*models.Player, error) {
	if wood == nil && stone == nil {
		return nil, fmt.Errorf("at least one of wood/stone is required: %w", models.ErrInvalidInput)
	}
	if (wood != nil && *wood < 0) || (stone != nil && *stone < 0) {
		return nil, fmt.Errorf("resource values must be non-negative: %w", models.ErrInvalidInput)
	}

	var updatedPlayer *models.Player
	err := s.txm.WithTx(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		player, err := s.playerRepo.GetForUpdate(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if wood != nil {
			player.Resources.Wood = *wood
		}
		if stone != nil {
			player.Resources.Stone = *stone
		}
		if err := s.playerRepo.Save(ctx, tx, player); err != nil {
			return err
		}
		updatedPlayer = player
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Player resources set",
		zap.String("playerID", playerID.String()),
		zap.Int("wood", updatedPlayer.Resources.Wood),
		zap.Int("stone", updatedPlayer.Resources.Stone))
	return updatedPlayer, nil
}

// GetPlayerInfo returns the current player state.
func (s *progressionServiceImpl) GetPlayerInfo(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	return s.playerRepo.GetByID(ctx, playerID)
}

// GetAllowedBuildings lists catalog entries the player could start next:
// not already InProgress/Completed (failed attempts do not exclude) and with
// all dependencies completed. Affordability does not filter the list, it is
// reported per entry together with the missing amounts.
func (s *progressionServiceImpl) GetAllowedBuildings(ctx context.Context, playerID uuid.UUID) ([]models.AllowedBuilding, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.buildingRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make([]models.AllowedBuilding, 0, len(catalog))
	for i := range catalog {
		building := &catalog[i]

		if record := player.GetBuilding(building.BuildingID); record != nil && record.Status != models.BuildStatusFailed {
			continue
		}

		dependenciesMet := true
		for _, depID := range building.Dependencies {
			if !player.HasCompletedBuilding(depID) {
				dependenciesMet = false
				break
			}
		}
		if !dependenciesMet {
			continue
		}

		entry := models.AllowedBuilding{
			Building:  *building,
			CanAfford: player.Resources.HasSufficient(building.RequiredWood, building.RequiredStone),
		}
		if !entry.CanAfford {
			entry.MissingResources = &models.MissingResources{
				Wood:  max(0, building.RequiredWood-player.Resources.Wood),
				Stone: max(0, building.RequiredStone-player.Resources.Stone),
			}
		}
		allowed = append(allowed, entry)
	}
	return allowed, nil
}

// publishCompletionEvents шлет событие завершения и затем полный снапшот.
func (s *progressionServiceImpl) publishCompletionEvents(ctx context.Context, player *models.Player, buildingID int) {
	s.publishEvent(ctx, player.ID, models.NewBuildingCompletedEvent(buildingID))
	s.publishEvent(ctx, player.ID, models.NewPlayerUpdatedEvent(player.Snapshot()))
}

// publishEvent — fire-and-forget: сбой доставки логируется и никогда не
// откатывает вызвавший его переход состояния.
func (s *progressionServiceImpl) publishEvent(ctx context.Context, playerID uuid.UUID, event any) {
	if err := s.publisher.PublishToPlayer(ctx, playerID, event); err != nil {
		s.logger.Error("Failed to publish client event", zap.Error(err), zap.String("playerID", playerID.String()))
	}
}
