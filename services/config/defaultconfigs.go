// services/config/defaultconfigs.go
package config

// defaultDeployment is the built-in deployment used when no config file is
// given: one DSP subsystem and one dual-M3 imaging subsystem.
const defaultDeployment = `
rproc:
  subsystems:
    - id: 0
      name: dsp
      shape: single_core
      reset_lines: [dsp]
      timers:
        - cap: dsp_irq
          fallback_id: 5
      firmware: tesla-dsp.xe64T
      mailbox: mbox-dsp
      module: dsp
      iommu: mmu_dsp
      mem:
        base: 0x98800000
        size: 0x800000
    - id: 1
      name: ipu
      shape: dual_core
      reset_lines: [cpu0, cpu1]
      timers:
        - cap: ipu_irq
          fallback_id: 3
      firmware: ducati-m3-core0.xem3
      mailbox: mbox-ipu
      module: ipu
      iommu: mmu_ipu
      mem:
        base: 0x99000000
        size: 0x4000000
`
