package models

const (
	StatusWaiting   = "waiting"
	StatusInService = "in-service"
	StatusCompleted = "completed"
)

const (
	BarberAvailable = "available"
	BarberBusy      = "busy"
	BarberOffline   = "offline"
)

const (
	ActionCustomerRegistered = "customer_registered"
	ActionCustomerRemoved    = "customer_removed"
	ActionStatusChanged      = "status_changed"
	ActionCustomerCompleted  = "customer_completed"
	ActionScheduleChanged    = "schedule_changed"
)

const (
	// DefaultSlotInterval шаг сетки слотов в минутах, общий для всех услуг
	DefaultSlotInterval = 30

	// DefaultBusinessStart / DefaultBusinessEnd границы рабочего дня
	DefaultBusinessStart = "08:00"
	DefaultBusinessEnd   = "19:30"

	// DefaultServiceEstimate длительность обслуживания одного клиента в минутах
	DefaultServiceEstimate = 45

	// Пиковые окна по умолчанию, часы [start, end)
	DefaultPeakMorningStart   = 9
	DefaultPeakMorningEnd     = 11
	DefaultPeakAfternoonStart = 16
	DefaultPeakAfternoonEnd   = 19

	// DefaultGridWaitPerCustomer грубая оценка ожидания для сетки слотов
	DefaultGridWaitPerCustomer = 5

	// DefaultSweepInterval период проверки истекших обслуживаний в секундах
	DefaultSweepInterval = 30

	// DefaultSweepAttempts количество попыток на шаг свипера
	DefaultSweepAttempts = 3

	// DefaultSweepRetryDelay задержка между попытками в секундах
	DefaultSweepRetryDelay = 2

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DefaultCountryCode телефонный код страны для ссылок WhatsApp
	DefaultCountryCode = "55"
)
