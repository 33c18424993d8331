package cec

// Opcode is the second byte of a frame.
type Opcode byte

const (
	OpFeatureAbort              Opcode = 0x00
	OpImageViewOn               Opcode = 0x04
	OpTextViewOn                Opcode = 0x0D
	OpStandby                   Opcode = 0x36
	OpUserControlPressed        Opcode = 0x44
	OpUserControlReleased       Opcode = 0x45
	OpGiveOSDName               Opcode = 0x46
	OpSetOSDName                Opcode = 0x47
	OpSystemAudioModeRequest    Opcode = 0x70
	OpGiveAudioStatus           Opcode = 0x71
	OpSetSystemAudioMode        Opcode = 0x72
	OpSetAudioVolumeLevel       Opcode = 0x73
	OpReportAudioStatus         Opcode = 0x7A
	OpGiveSystemAudioModeStatus Opcode = 0x7D
	OpSystemAudioModeStatus     Opcode = 0x7E
	OpActiveSource              Opcode = 0x82
	OpGivePhysicalAddress       Opcode = 0x83
	OpReportPhysicalAddress     Opcode = 0x84
	OpRequestActiveSource       Opcode = 0x85
	OpSetStreamPath             Opcode = 0x86
	OpDeviceVendorID            Opcode = 0x87
	OpGiveDeviceVendorID        Opcode = 0x8C
	OpGiveDevicePowerStatus     Opcode = 0x8F
	OpReportPowerStatus         Opcode = 0x90
	OpCECVersion                Opcode = 0x9E
	OpGetCECVersion             Opcode = 0x9F
	OpInitiateARC               Opcode = 0xC0
	OpReportARCInitiated        Opcode = 0xC1
	OpReportARCTerminated       Opcode = 0xC2
	OpRequestARCInitiation      Opcode = 0xC3
	OpRequestARCTermination     Opcode = 0xC4
	OpTerminateARC              Opcode = 0xC5
	OpAbort                     Opcode = 0xFF
)

// AbortReason is the operand of a Feature Abort message.
type AbortReason byte

const (
	AbortUnrecognized  AbortReason = 0x00
	AbortWrongMode     AbortReason = 0x01
	AbortCannotProvide AbortReason = 0x02
	AbortInvalid       AbortReason = 0x03
	AbortRefused       AbortReason = 0x04
)

var opcodeNames = map[Opcode]string{
	OpFeatureAbort:              "Feature Abort",
	OpImageViewOn:               "Image View On",
	OpTextViewOn:                "Text View On",
	OpStandby:                   "Standby",
	OpUserControlPressed:        "User Control Pressed",
	OpUserControlReleased:       "User Control Released",
	OpGiveOSDName:               "Give OSD Name",
	OpSetOSDName:                "Set OSD Name",
	OpSystemAudioModeRequest:    "System Audio Mode Request",
	OpGiveAudioStatus:           "Give Audio Status",
	OpSetSystemAudioMode:        "Set System Audio Mode",
	OpSetAudioVolumeLevel:       "Set Audio Volume Level",
	OpReportAudioStatus:         "Report Audio Status",
	OpGiveSystemAudioModeStatus: "Give System Audio Mode Status",
	OpSystemAudioModeStatus:     "System Audio Mode Status",
	OpActiveSource:              "Active Source",
	OpGivePhysicalAddress:       "Give Physical Address",
	OpReportPhysicalAddress:     "Report Physical Address",
	OpRequestActiveSource:       "Request Active Source",
	OpSetStreamPath:             "Set Stream Path",
	OpDeviceVendorID:            "Device Vendor ID",
	OpGiveDeviceVendorID:        "Give Device Vendor ID",
	OpGiveDevicePowerStatus:     "Give Device Power Status",
	OpReportPowerStatus:         "Report Power Status",
	OpCECVersion:                "CEC Version",
	OpGetCECVersion:             "Get CEC Version",
	OpInitiateARC:               "Initiate ARC",
	OpReportARCInitiated:        "Report ARC Initiated",
	OpReportARCTerminated:       "Report ARC Terminated",
	OpRequestARCInitiation:      "Request ARC Initiation",
	OpRequestARCTermination:     "Request ARC Termination",
	OpTerminateARC:              "Terminate ARC",
	OpAbort:                     "Abort",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "Unknown"
}
