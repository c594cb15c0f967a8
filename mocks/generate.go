package mocks

//go:generate mockgen -destination=./mock_deliverer.go -package=mocks github.com/betbot/titanbridge/internal/arbiter Deliverer
