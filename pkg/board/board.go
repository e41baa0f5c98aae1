package board

import "strconv"

//NumPins count of logical BCM lines on the 40-pin header
const NumPins = 28

//bcmToPhysical maps a BCM line to its position on the physical header.
//BCM 0 and 1 (ID EEPROM) have no general-purpose header position.
var bcmToPhysical = map[int]int{
	2: 3, 3: 5, 4: 7, 17: 11, 27: 13, 22: 15, 10: 19, 9: 21, 11: 23, 5: 29,
	6: 31, 13: 33, 19: 35, 26: 37, 14: 8, 15: 10, 18: 12, 23: 16, 24: 18,
	25: 22, 8: 24, 7: 26, 12: 32, 16: 36, 20: 38, 21: 40,
}

//Valid whether pin is inside the board's BCM domain
func Valid(pin int) bool {
	return pin >= 0 && pin < NumPins
}

//Physical header position for a BCM line
func Physical(pin int) (int, bool) {
	phys, ok := bcmToPhysical[pin]
	return phys, ok
}

//PhysicalLabel display label for a BCM line, "N/A" when it has no
//header position or is out of range
func PhysicalLabel(pin int) string {
	if phys, ok := bcmToPhysical[pin]; ok {
		return strconv.Itoa(phys)
	}
	return "N/A"
}
