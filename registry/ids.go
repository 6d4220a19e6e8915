package registry

// Canonical module identifiers. The selection engine addresses modules by
// these names; a catalog that renames them will fail selection.
const (
	// JIT core modules, always resident.
	ModISR    ID = "mod_isr"
	ModIRQ    ID = "mod_irq"
	ModPktBuf ID = "mod_pktbuf"
	ModData   ID = "mod_data"

	// NIC handler modules, one per generation.
	Mod3C509B    ID = "mod_3c509b_rt"
	Mod3C515     ID = "mod_3c515_rt"
	ModVortex    ID = "mod_vortex_rt"
	ModBoomerang ID = "mod_boom_rt"
	ModCyclone   ID = "mod_cyclone_rt"
	ModTornado   ID = "mod_tornado_rt"

	// DMA strategy modules.
	ModPIO           ID = "mod_pio"
	ModDMAISA        ID = "mod_dma_isa"
	ModDMABusMaster  ID = "mod_dma_busmaster"
	ModDMADescRing   ID = "mod_dma_descring"
	ModDMABounce     ID = "mod_dma_bounce"

	// Cache coherency modules.
	ModCacheNone    ID = "mod_cache_none"
	ModCacheWBINVD  ID = "mod_cache_wbinvd"
	ModCacheCLFLUSH ID = "mod_cache_clflush"
	ModCacheSnoop   ID = "mod_cache_snoop"

	// CPU-tuned copy routines.
	ModCopy8086 ID = "mod_copy_8086"
	ModCopy286  ID = "mod_copy_286"
	ModCopy386  ID = "mod_copy_386"
	ModCopyPent ID = "mod_copy_pent"

	// Always-resident support modules of the two-stage loader.
	CorePktAPI  ID = "core_pktapi"
	CoreNICIRQ  ID = "core_nicirq"
	CoreHWSMC   ID = "core_hwsmc"
	CorePCMISR  ID = "core_pcmisr"
	CoreFlowRT  ID = "core_flowrt"
	CoreDirPIO  ID = "core_dirpio"
	CorePktOps  ID = "core_pktops"
	CorePktCopy ID = "core_pktcopy"
	CoreTSRCom  ID = "core_tsrcom"
	CoreTSRWrap ID = "core_tsrwrap"
	CorePCIIO   ID = "core_pci_io"
	CorePCIISR  ID = "core_pciisr"
	CoreLinkASM ID = "core_linkasm"
	CoreHWPkt   ID = "core_hwpkt"
	CoreHWCfg   ID = "core_hwcfg"
	CoreHWCoord ID = "core_hwcoord"
	CoreHWInit  ID = "core_hwinit"
	CoreHWEEP   ID = "core_hweep"
	CoreHWDMA   ID = "core_hwdma"
	CoreCacheOp ID = "core_cacheops"
	CoreTSRCRT  ID = "core_tsr_crt"
)

// CoreModules are selected unconditionally, in this order, before any
// hardware-driven choice is made.
var CoreModules = []ID{
	ModISR, ModIRQ, ModPktBuf, ModData,
	CorePktAPI, CoreNICIRQ, CoreHWSMC, CorePCMISR, CoreFlowRT,
	CoreDirPIO, CorePktOps, CorePktCopy, CoreTSRCom, CoreTSRWrap,
	CorePCIIO, CorePCIISR, CoreLinkASM, CoreHWPkt, CoreHWCfg,
	CoreHWCoord, CoreHWInit, CoreHWEEP, CoreHWDMA, CoreCacheOp, CoreTSRCRT,
}
