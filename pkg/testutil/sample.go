package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
)

// SampleUser creates a new user in database with randomized fields. The
// sample user can be overwritten by non-zero fields of init.
func SampleUser(ctx context.Context, init *entity.User) (entity.User, error) {
	userRepo := repository.NewUserRepository()

	sample := &entity.User{
		Base: entity.Base{ID: uuid.NewString()},
		Name: uuid.NewString(),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := userRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

// SampleDraw creates a new active draw in database. The sample draw can be
// overwritten by non-zero fields of init.
func SampleDraw(ctx context.Context, init *entity.PrizeDraw) (entity.PrizeDraw, error) {
	drawRepo := repository.NewDrawRepository()

	now := time.Now()
	sample := &entity.PrizeDraw{
		Base:            entity.Base{ID: uuid.NewString()},
		Title:           uuid.NewString(),
		Prize:           "Sample prize",
		PointsPerTicket: 20,
		Status:          entity.DrawStatusActive,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := drawRepo.Create(ctx, sample); err != nil {
		return *sample, err
	}
	return *sample, nil
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if overwriteField.Interface() != reflect.Zero(overwriteField.Type()).Interface() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
