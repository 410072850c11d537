package mutation

import (
	"fmt"

	"rowbatch/data/model"
	"rowbatch/data/store"
	"rowbatch/errors"
)

// Make 按种类为模型创建执行器
func Make(kind Kind, desc *model.Descriptor, st store.IStore, opts ...Option) (IService, error) {
	var (
		svc IService
		err error
	)
	switch kind {
	case KindCreate:
		svc, err = NewCreate(desc, st, opts...)
	case KindUpdate:
		svc, err = NewUpdate(desc, st, opts...)
	case KindDelete:
		svc, err = NewDelete(desc, st, opts...)
	case KindCreateMany:
		svc, err = NewCreateMany(desc, st, opts...)
	case KindUpsert:
		svc, err = NewUpsert(desc, st, opts...)
	case KindUpdateMany:
		svc, err = NewUpdateMany(desc, st, opts...)
	case KindDeleteMany:
		svc, err = NewDeleteMany(desc, st, opts...)
	case KindOneToManyCreate:
		svc, err = NewOneToManyCreate(desc, st, opts...)
	default:
		return nil, errors.NewError(errors.ErrCodeUnsupported, fmt.Sprintf("unknown mutation kind %q", kind))
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// MakeAs 同 Make，并断言为具体执行器类型
func MakeAs[T IService](kind Kind, desc *model.Descriptor, st store.IStore, opts ...Option) (T, error) {
	var zero T
	svc, err := Make(kind, desc, st, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("mutation kind %q does not produce %T", kind, zero))
	}
	return typed, nil
}
