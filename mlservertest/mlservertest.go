package mlservertest

import (
	"github.com/brianvoe/gofakeit/v6"
)

func New(seed int64) *DataGen {
	return &DataGen{
		Faker: gofakeit.New(seed),
	}
}

type DataGen struct {
	*gofakeit.Faker
}
