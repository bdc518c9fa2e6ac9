// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package msoffice

// Bridge scripts driving the PowerPoint COM automation surface. Each one
// opens its own application instance and quits it on exit so a killed
// bridge process cannot leak a hidden PowerPoint. MsoTriState true is -1.

const probeScript = `
Test-Path "Registry::HKEY_CLASSES_ROOT\PowerPoint.Application"
`

const countScript = `
param([Parameter(Mandatory)][string]$Source)
$ErrorActionPreference = "Stop"
$app = New-Object -ComObject PowerPoint.Application
try {
    $pres = $app.Presentations.Open($Source, -1, -1, 0)
    try {
        Write-Output $pres.Slides.Count
    } finally {
        $pres.Close()
    }
} finally {
    $app.Quit()
}
`

// Slide filtering uses the hidden-slide flag: every slide outside the
// keep set is hidden and the export skips hidden slides. The deck is
// opened writable for that but never saved.
const exportPDFScript = `
param(
    [Parameter(Mandatory)][string]$Source,
    [Parameter(Mandatory)][string]$Dest,
    [int]$OutputType = 1,
    [string]$Keep = ""
)
$ErrorActionPreference = "Stop"
$app = New-Object -ComObject PowerPoint.Application
try {
    $readOnly = if ($Keep -eq "") { -1 } else { 0 }
    $pres = $app.Presentations.Open($Source, $readOnly, -1, 0)
    try {
        if ($Keep -ne "") {
            $keepSet = @{}
            foreach ($i in $Keep.Split(",")) { $keepSet[[int]$i] = $true }
            foreach ($slide in $pres.Slides) {
                if (-not $keepSet.ContainsKey($slide.SlideIndex)) {
                    $slide.SlideShowTransition.Hidden = -1
                }
            }
        }
        # ExportAsFixedFormat: Path, Type(2=PDF), Intent(2=Print),
        # FrameSlides, HandoutOrder, OutputType, PrintHiddenSlides
        $pres.ExportAsFixedFormat($Dest, 2, 2, 0, 1, $OutputType, 0)
        $pres.Saved = -1
    } finally {
        $pres.Close()
    }
} finally {
    $app.Quit()
}
`

// Plan pairs are "index=filename" joined with "|"; both separators are
// invalid in Windows file names.
const exportImagesScript = `
param(
    [Parameter(Mandatory)][string]$Source,
    [Parameter(Mandatory)][string]$OutDir,
    [Parameter(Mandatory)][string]$Filter,
    [Parameter(Mandatory)][int]$Dpi,
    [Parameter(Mandatory)][string]$Plan
)
$ErrorActionPreference = "Stop"
$app = New-Object -ComObject PowerPoint.Application
try {
    $pres = $app.Presentations.Open($Source, -1, -1, 0)
    try {
        $w = [int][Math]::Round($pres.PageSetup.SlideWidth / 72 * $Dpi)
        $h = [int][Math]::Round($pres.PageSetup.SlideHeight / 72 * $Dpi)
        foreach ($pair in $Plan.Split("|")) {
            $parts = $pair.Split("=", 2)
            $target = Join-Path $OutDir $parts[1]
            $pres.Slides.Item([int]$parts[0]).Export($target, $Filter, $w, $h)
        }
    } finally {
        $pres.Close()
    }
} finally {
    $app.Quit()
}
`
