package pad

type PeriphADC struct{}

func NewPeriphADC(pin1Name, pin2Name string) *PeriphADC { return &PeriphADC{} }

func (a *PeriphADC) ReadVolts() (float64, float64, error) { return 0, 0, nil }
